package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ukydev/factory-log/internal/db"
	"github.com/ukydev/factory-log/internal/models"
	"gopkg.in/yaml.v3"
)

// Seed is the on-disk shape of a reference catalog file.
type Seed struct {
	Machines []struct {
		Code       string `yaml:"code"`
		Name       string `yaml:"name"`
		Department string `yaml:"department"`
		Active     *bool  `yaml:"active"`
	} `yaml:"machines"`
	Parts []struct {
		PartNo          string  `yaml:"part_no"`
		Name            string  `yaml:"name"`
		StdCycleTimeSec float64 `yaml:"std_cycle_time_sec"`
		Active          *bool   `yaml:"active"`
	} `yaml:"parts"`
	// DowntimeReasons maps a category to its reason codes and labels.
	DowntimeReasons map[string]map[string]string `yaml:"downtime_reasons"`
}

// LoadSeed reads a YAML catalog file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("catalog seed %s is empty", path)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse catalog seed %s: %w", path, err)
	}
	return &seed, nil
}

// Entries flattens the seed into catalog entries. Entries without an explicit
// active flag are active.
func (s *Seed) Entries() ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	for i, m := range s.Machines {
		if strings.TrimSpace(m.Code) == "" {
			return nil, fmt.Errorf("machine #%d has no code", i+1)
		}
		entries = append(entries, models.CatalogEntry{
			Kind:       models.KindMachine,
			Key:        strings.TrimSpace(m.Code),
			Label:      m.Name,
			Department: m.Department,
			Active:     isActive(m.Active),
		})
	}
	for i, p := range s.Parts {
		if strings.TrimSpace(p.PartNo) == "" {
			return nil, fmt.Errorf("part #%d has no part_no", i+1)
		}
		if p.StdCycleTimeSec < 0 {
			return nil, fmt.Errorf("part %s has a negative cycle time", p.PartNo)
		}
		entries = append(entries, models.CatalogEntry{
			Kind:            models.KindPart,
			Key:             strings.TrimSpace(p.PartNo),
			Label:           p.Name,
			StdCycleTimeSec: p.StdCycleTimeSec,
			Active:          isActive(p.Active),
		})
	}
	for category, reasons := range s.DowntimeReasons {
		for code, label := range reasons {
			entries = append(entries, models.CatalogEntry{
				Kind:     models.KindDowntimeReason,
				Key:      strings.TrimSpace(code),
				Label:    label,
				Category: category,
				Active:   true,
			})
		}
	}
	return entries, nil
}

// Apply upserts every seed entry into store and returns how many were written.
func (s *Seed) Apply(ctx context.Context, store db.CatalogStore) (int, error) {
	entries, err := s.Entries()
	if err != nil {
		return 0, err
	}
	for i := range entries {
		if err := store.UpsertCatalogEntry(ctx, &entries[i]); err != nil {
			return i, fmt.Errorf("upsert %s %s: %w", entries[i].Kind, entries[i].Key, err)
		}
	}
	return len(entries), nil
}

func isActive(flag *bool) bool {
	return flag == nil || *flag
}
