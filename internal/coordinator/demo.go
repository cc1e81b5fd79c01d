package coordinator

import (
	_ "embed"
	"fmt"

	"github.com/cuemby/muster/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed demo_fixture.yaml
var demoFixtureYAML []byte

type demoWorker struct {
	ID          string `yaml:"id"`
	Address     string `yaml:"address"`
	GPUCount    int    `yaml:"gpu_count"`
	MemoryBytes int64  `yaml:"memory_bytes"`
}

type demoDataset struct {
	ID           string `yaml:"id"`
	Path         string `yaml:"path"`
	Format       string `yaml:"format"`
	TotalSamples uint64 `yaml:"total_samples"`
	ShardSize    uint64 `yaml:"shard_size"`
	Shuffle      bool   `yaml:"shuffle"`
	Seed         uint64 `yaml:"seed"`
}

type demoTask struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	DatasetID string   `yaml:"dataset_id"`
	WorkerIDs []string `yaml:"worker_ids"`
}

type demoFixture struct {
	Workers  []demoWorker  `yaml:"workers"`
	Datasets []demoDataset `yaml:"datasets"`
	Tasks    []demoTask    `yaml:"tasks"`
}

// SeedDemo populates the worker registry, dataset registry, and task store
// from the embedded fixture. Called once at startup when DEMO_MODE is set,
// so operators see a populated dashboard without a real worker fleet.
func (c *Coordinator) SeedDemo() error {
	var fx demoFixture
	if err := yaml.Unmarshal(demoFixtureYAML, &fx); err != nil {
		return fmt.Errorf("parse demo fixture: %w", err)
	}

	for _, w := range fx.Workers {
		capacity := types.WorkerCapacity{GPUCount: w.GPUCount, MemoryBytes: w.MemoryBytes}
		if _, err := c.workers.Register(w.ID, w.Address, capacity); err != nil {
			return fmt.Errorf("seed worker %s: %w", w.ID, err)
		}
	}
	for _, d := range fx.Datasets {
		if _, err := c.datasets.Register(d.ID, d.Path, d.Format, d.TotalSamples, d.ShardSize, d.Shuffle, d.Seed); err != nil {
			return fmt.Errorf("seed dataset %s: %w", d.ID, err)
		}
	}
	for _, t := range fx.Tasks {
		c.tasks.Create(t.Name, t.Kind, t.DatasetID, t.WorkerIDs)
	}

	c.logger.Info().
		Int("workers", len(fx.Workers)).
		Int("datasets", len(fx.Datasets)).
		Int("tasks", len(fx.Tasks)).
		Msg("demo mode fixtures seeded")
	return nil
}
