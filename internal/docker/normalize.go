package docker

// Usage is a one-shot resource reading for a single container.
type Usage struct {
	Name       string
	CPUPct     float64
	MemUsed    uint64
	MemLimit   uint64
	MemPct     float64
	NetRxBytes uint64
	NetTxBytes uint64
}

// NormalizeStats converts a raw stats sample into percentages the way the
// docker CLI does: cpu delta over system delta, scaled by online CPUs.
func NormalizeStats(name string, s Stats) Usage {
	u := Usage{Name: name}

	sysDelta := float64(s.CPUStats.SystemCPUUsage - s.PreCPUStats.SystemCPUUsage)
	cpuDelta := float64(s.CPUStats.CPUUsage.TotalUsage - s.PreCPUStats.CPUUsage.TotalUsage)
	cpus := float64(s.CPUStats.OnlineCPUs)
	if cpus == 0 {
		cpus = float64(len(s.CPUStats.CPUUsage.PercpuUsage))
		if cpus == 0 {
			cpus = 1
		}
	}
	if sysDelta > 0 && cpuDelta >= 0 {
		u.CPUPct = (cpuDelta / sysDelta) * cpus * 100
	}

	u.MemUsed = s.MemoryStats.Usage
	u.MemLimit = s.MemoryStats.Limit
	if u.MemLimit > 0 {
		u.MemPct = float64(u.MemUsed) / float64(u.MemLimit) * 100
	}

	for _, n := range s.Networks {
		u.NetRxBytes += n.RxBytes
		u.NetTxBytes += n.TxBytes
	}
	return u
}
