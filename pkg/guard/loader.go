package guard

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// routeFile is the on-disk route policy format
//
//	routes:
//	  - path: /chat
//	    permission: access_chat
//	  - path: /seats/manage
//	    permission: manage_members
//	    mutating: true
//	    seat_affecting: true
type routeFile struct {
	Routes []RoutePolicy `yaml:"routes"`
}

// ParseRouteTable parses a YAML route policy document
func ParseRouteTable(data []byte) (*RouteTable, error) {
	var file routeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse route policy: %w", err)
	}
	if len(file.Routes) == 0 {
		return nil, fmt.Errorf("route policy defines no routes")
	}
	return NewRouteTable(file.Routes)
}

// LoadRouteTable reads a YAML route policy file
func LoadRouteTable(path string) (*RouteTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route policy: %w", err)
	}
	return ParseRouteTable(data)
}
