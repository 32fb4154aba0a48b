package inventory

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Host is one machine in the managed fleet.
type Host struct {
	Name string `yaml:"name"`
}

// Inventory is the read-only set of fleet hosts. It is loaded once at startup
// and shared across concurrent probes.
type Inventory struct {
	Path  string `yaml:"-"`
	Hosts []Host `yaml:"hosts"`
}

// Load reads a YAML inventory file of the form:
//
//	hosts:
//	  - name: gpu-01
//	  - name: gpu-02
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory %s: %w", path, err)
	}

	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory %s: %w", path, err)
	}

	hosts := make([]Host, 0, len(inv.Hosts))
	for _, h := range inv.Hosts {
		name := strings.TrimSpace(h.Name)
		if name == "" {
			continue
		}
		hosts = append(hosts, Host{Name: name})
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("inventory %s contains no hosts", path)
	}

	inv.Hosts = hosts
	inv.Path = path
	return &inv, nil
}

// HostNames returns the names of every inventory host.
func (inv *Inventory) HostNames() []string {
	names := make([]string, len(inv.Hosts))
	for i, h := range inv.Hosts {
		names[i] = h.Name
	}
	return names
}
