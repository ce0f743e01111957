package collector

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	// DefaultInstancesDir is where multi-instance tor setups (e.g.,
	// `tor-instance-create`) keep one data directory per instance.
	//
	DefaultInstancesDir = "/var/lib/tor-instances"

	// DefaultDataDir is the data directory of the unnamed system tor.
	//
	DefaultDataDir = "/var/lib/tor"

	// StatsFile is the location of the bridge statistics file relative
	// to an instance's data directory.
	//
	StatsFile = "stats/bridge-stats"

	// DefaultInstanceName is the `tor_instance` label value used for the
	// instance living under DefaultDataDir.
	//
	DefaultInstanceName = "default"
)

// Source is a tor instance whose bridge statistics file is to be read.
//
type Source struct {
	// Name is the value of the `tor_instance` label.
	//
	Name string

	// Path is the full path to the instance's bridge-stats file.
	//
	Path string
}

// Discoverer finds out which tor instances have a bridge-stats file that we
// can read.
//
type Discoverer struct {
	fs           afero.Fs
	instancesDir string
	dataDir      string
}

// NewDiscoverer instantiates a Discoverer that probes `instancesDir` for
// named instances and `dataDir` for the default one.
//
func NewDiscoverer(fs afero.Fs, instancesDir, dataDir string) *Discoverer {
	return &Discoverer{
		fs:           fs,
		instancesDir: instancesDir,
		dataDir:      dataDir,
	}
}

// Discover lists the sources whose statistics file exists: named instances
// first (in directory listing order), then the default instance.
//
// A missing instances directory is not an error.
//
func (d *Discoverer) Discover() ([]Source, error) {
	sources := []Source{}

	if d.instancesDir != "" {
		named, err := d.discoverInstances()
		if err != nil {
			return nil, fmt.Errorf("discover instances: %w", err)
		}

		sources = append(sources, named...)
	}

	if d.dataDir != "" {
		path := filepath.Join(d.dataDir, StatsFile)

		if d.isFile(path) {
			sources = append(sources, Source{
				Name: DefaultInstanceName,
				Path: path,
			})
		}
	}

	return sources, nil
}

func (d *Discoverer) discoverInstances() ([]Source, error) {
	isDir, err := afero.IsDir(d.fs, d.instancesDir)
	if err != nil || !isDir {
		return nil, nil
	}

	entries, err := afero.ReadDir(d.fs, d.instancesDir)
	if err != nil {
		return nil, fmt.Errorf("read dir '%s': %w", d.instancesDir, err)
	}

	sources := []Source{}
	for _, entry := range entries {
		path := filepath.Join(d.instancesDir, entry.Name(), StatsFile)

		if !d.isFile(path) {
			continue
		}

		sources = append(sources, Source{
			Name: entry.Name(),
			Path: path,
		})
	}

	return sources, nil
}

// isFile tells whether `path` exists and is a regular file. Any failure to
// stat it (missing parent, permissions, a file where a directory was
// expected) counts as absent.
//
func (d *Discoverer) isFile(path string) bool {
	info, err := d.fs.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular()
}
