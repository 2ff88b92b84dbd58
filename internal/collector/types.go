package collector

import "time"

// Snapshot is one cycle's worth of point-in-time samples. Fields that could
// not be read carry their documented fallback value instead of an error.
type Snapshot struct {
	Hostname    string
	Platform    string
	Kernel      string
	Uptime      string
	CollectedAt time.Time

	CPUPct    int
	MemoryPct int
	Load1     float64
	Load5     float64
	Load15    float64

	Disks        []DiskSample
	Services     []ServiceSample
	Containers   ContainerSample
	TopProcesses []ProcessSample
	Interfaces   []InterfaceSample
}

type DiskSample struct {
	Mount   string
	UsedPct int
}

type ServiceSample struct {
	Name    string
	Running bool
}

// ContainerSample distinguishes an absent runtime from zero containers.
type ContainerSample struct {
	Installed bool
	Reachable bool
	Running   int
	Total     int
}

type ProcessSample struct {
	User    string
	CPUPct  float64
	MemPct  float64
	Command string
}

// InterfaceSample with Found=false means the named interface has no counters
// at all, which is reported distinctly from an idle interface.
type InterfaceSample struct {
	Name    string
	Found   bool
	RxBytes uint64
	TxBytes uint64
}
