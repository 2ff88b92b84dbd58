package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"opsmon/internal/collector"
	"opsmon/internal/config"
	"opsmon/internal/status"
)

var htmlTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>System Report - {{.Hostname}}</title>
<style>
body { font-family: sans-serif; background: #f4f4f4; margin: 2em; }
.metric { display: inline-block; width: 200px; margin: 10px; padding: 20px; border-radius: 8px; text-align: center; }
.metric h2 { margin: 0 0 8px 0; font-size: 1em; }
.metric .value { font-size: 2em; font-weight: bold; }
.ok { background: #d4edda; color: #155724; }
.warning { background: #fff3cd; color: #856404; }
.critical { background: #f8d7da; color: #721c24; }
.footer { margin-top: 2em; color: #666; font-size: 0.8em; }
</style>
</head>
<body>
<h1>System Report: {{.Hostname}}</h1>
{{range .Blocks}}<div class="metric {{.Class}}"><h2>{{.Label}}</h2><div class="value">{{.Value}}</div></div>
{{end}}<div class="footer">Generated {{.GeneratedAt}}</div>
</body>
</html>
`))

type htmlData struct {
	Hostname    string
	GeneratedAt string
	Blocks      []htmlBlock
}

type htmlBlock struct {
	Label string
	Value string
	Class string
}

// HTML renders the headline metrics to path, fully replacing any previous
// report. The write goes through a temp file so readers never see a partial
// document.
func HTML(path string, snap collector.Snapshot, cfg config.Config, now time.Time) error {
	data := htmlData{
		Hostname:    snap.Hostname,
		GeneratedAt: now.Format("2006-01-02 15:04:05"),
		Blocks: []htmlBlock{
			{Label: "CPU", Value: pctString(snap.CPUPct), Class: levelClass(snap.CPUPct, cfg.CPUThreshold)},
			{Label: "Memory", Value: pctString(snap.MemoryPct), Class: levelClass(snap.MemoryPct, cfg.MemoryThreshold)},
		},
	}
	if d, ok := rootDisk(snap); ok {
		data.Blocks = append(data.Blocks, htmlBlock{
			Label: "Disk /", Value: pctString(d.UsedPct), Class: levelClass(d.UsedPct, cfg.DiskThreshold),
		})
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := htmlTmpl.Execute(tmp, data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func rootDisk(snap collector.Snapshot) (collector.DiskSample, bool) {
	for _, d := range snap.Disks {
		if d.Mount == "/" {
			return d, true
		}
	}
	if len(snap.Disks) > 0 {
		return snap.Disks[0], true
	}
	return collector.DiskSample{}, false
}

func levelClass(value, ceiling int) string {
	return strings.ToLower(status.Evaluate(value, ceiling).String())
}

func pctString(v int) string {
	return fmt.Sprintf("%d%%", v)
}
