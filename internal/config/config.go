// Package config loads the poolrun HCL configuration file.
package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/ygrebnov/threadpool"
)

// File is the top-level structure of a poolrun config file.
//
//	pool {
//	  workers      = 4
//	  spawn_policy = "strict"
//	  name         = "demo"
//	}
//
//	runtime "goja" {
//	  bootstrap = "function work(i) { return i * i; }"
//	}
//
//	job {
//	  tasks  = 100
//	  script = "work(3)"
//	}
type File struct {
	Pool    *Pool    `hcl:"pool,block"`
	Runtime *Runtime `hcl:"runtime,block"`
	Job     *Job     `hcl:"job,block"`
}

type Pool struct {
	Workers     *int    `hcl:"workers,optional"`
	SpawnPolicy *string `hcl:"spawn_policy,optional"`
	Name        *string `hcl:"name,optional"`
}

type Runtime struct {
	Kind      string  `hcl:"kind,label"`
	Bootstrap *string `hcl:"bootstrap,optional"`
}

type Job struct {
	Tasks  int     `hcl:"tasks"`
	Script *string `hcl:"script,optional"`
}

// Load parses and validates the HCL file at path.
func Load(path string) (*File, error) {
	return load(hclparse.NewParser(), path, nil)
}

// Parse parses and validates HCL source held in memory. filename is used in
// diagnostics only.
func Parse(src []byte, filename string) (*File, error) {
	return load(hclparse.NewParser(), filename, src)
}

func load(parser *hclparse.Parser, path string, src []byte) (*File, error) {
	var (
		hclFile *hcl.File
		diags   hcl.Diagnostics
	)
	if src != nil {
		hclFile, diags = parser.ParseHCL(src, path)
	} else {
		hclFile, diags = parser.ParseHCLFile(path)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var f File
	diags = gohcl.DecodeBody(hclFile.Body, nil, &f)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.Job == nil {
		return fmt.Errorf("%w: missing job block", threadpool.ErrInvalidConfig)
	}
	if f.Job.Tasks < 0 {
		return fmt.Errorf("%w: job.tasks must be >= 0", threadpool.ErrInvalidConfig)
	}
	if f.Runtime != nil && f.Runtime.Kind != "goja" {
		return fmt.Errorf("%w: unsupported runtime %q", threadpool.ErrInvalidConfig, f.Runtime.Kind)
	}
	if f.Pool != nil && f.Pool.Workers != nil && *f.Pool.Workers < 0 {
		return fmt.Errorf("%w: pool.workers must be >= 0", threadpool.ErrInvalidConfig)
	}
	if f.Pool != nil && f.Pool.SpawnPolicy != nil {
		if _, err := threadpool.ParseSpawnPolicy(*f.Pool.SpawnPolicy); err != nil {
			return err
		}
	}
	return nil
}

// Options translates the pool block into pool options.
func (f *File) Options() []threadpool.Option {
	if f.Pool == nil {
		return nil
	}
	var opts []threadpool.Option
	if f.Pool.Workers != nil {
		opts = append(opts, threadpool.WithWorkers(*f.Pool.Workers))
	}
	if f.Pool.SpawnPolicy != nil {
		// validated in load
		p, _ := threadpool.ParseSpawnPolicy(*f.Pool.SpawnPolicy)
		opts = append(opts, threadpool.WithSpawnPolicy(p))
	}
	if f.Pool.Name != nil {
		opts = append(opts, threadpool.WithName(*f.Pool.Name))
	}
	return opts
}
