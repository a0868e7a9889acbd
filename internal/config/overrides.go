package config

// CLIOverrides carries only the flags the user actually typed on the
// command line, each paired with a "was it set" bit so Merge can tell an
// explicit `--cores 1` apart from an unset flag defaulting to zero.
type CLIOverrides struct {
	Cores           int
	CoresSet        bool
	ChunkSizeMiB    int
	ChunkSizeSet    bool
	Resume          bool
	ResumeSet       bool
	Force           bool
	ForceSet        bool
	Quiet           bool
	QuietSet        bool
	Verbose         bool
	VerboseSet      bool
	Schedule        string
	ScheduleSet     bool
	Daemon          bool
	DaemonSet       bool
	Target          string
	TargetSet       bool
	ScanConcurrency int
	ScanConcSet     bool
}

func (o CLIOverrides) apply(cfg *Config) {
	if o.CoresSet {
		cfg.Cores = o.Cores
	}

	if o.ChunkSizeSet {
		cfg.ChunkSizeMiB = o.ChunkSizeMiB
	}

	if o.ResumeSet {
		cfg.Resume = o.Resume
	}

	if o.ForceSet {
		cfg.Force = o.Force
	}

	if o.QuietSet {
		cfg.Quiet = o.Quiet
	}

	if o.VerboseSet {
		cfg.Verbose = o.Verbose
	}

	if o.ScheduleSet {
		cfg.Schedule = o.Schedule
	}

	if o.DaemonSet {
		cfg.Daemon = o.Daemon
	}

	if o.TargetSet {
		cfg.Target = o.Target
	}

	if o.ScanConcSet {
		cfg.ScanConcurrency = o.ScanConcurrency
	}
}

// Resolve builds the final Config from defaults, the optional file at
// filePath, and the CLI overrides, then validates the result.
func Resolve(filePath string, override CLIOverrides) (*Config, error) {
	cfg := DefaultConfig()

	fc, err := LoadFile(filePath)
	if err != nil {
		return nil, err
	}

	if err := Merge(cfg, fc, override); err != nil {
		return nil, err
	}

	if cfg.Quiet {
		cfg.Verbose = false
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
