package archive

import "strconv"

const (
	// DescriptorEntry is the compiled module descriptor at an archive's root.
	DescriptorEntry = "module-info.class"
	// VersionsDir holds the per-release shards of a multi-release jar.
	VersionsDir = "META-INF/versions"
	// FloorVersion is the lowest shard a multi-release jar can carry.
	FloorVersion = 8
)

// ModuleStatus classifies an archive.
type ModuleStatus int

const (
	NonModular ModuleStatus = iota
	Modular
)

func (s ModuleStatus) String() string {
	if s == Modular {
		return "modular"
	}
	return "non-modular"
}

// Probe detects module descriptors, including ones that exist only inside a
// multi-release shard. Shards are scanned over [Floor, Ceiling).
type Probe struct {
	Floor   int
	Ceiling int
}

// NewProbe returns a probe scanning shards from FloorVersion up to, but not
// including, ceiling. A ceiling at or below the floor scans nothing.
func NewProbe(ceiling int) *Probe {
	return &Probe{Floor: FloorVersion, Ceiling: ceiling}
}

// ScansShards reports whether the configured range contains any shard.
func (p *Probe) ScansShards() bool {
	return p.Ceiling > p.Floor
}

// Status classifies an opened archive.
func (p *Probe) Status(e Entries) ModuleStatus {
	if e.Has(DescriptorEntry) {
		return Modular
	}
	if !e.HasDir(VersionsDir) {
		return NonModular
	}
	for v := p.Floor; v < p.Ceiling; v++ {
		if e.Has(ShardDescriptor(v)) {
			return Modular
		}
	}
	return NonModular
}

// StatusOf opens path, classifies it and closes it.
func (p *Probe) StatusOf(path string) (ModuleStatus, error) {
	a, err := Open(path)
	if err != nil {
		return NonModular, err
	}
	defer a.Close()
	return p.Status(a), nil
}

// ShardDescriptor is the descriptor entry for one release shard.
func ShardDescriptor(version int) string {
	return VersionsDir + "/" + strconv.Itoa(version) + "/" + DescriptorEntry
}
