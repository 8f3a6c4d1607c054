package panel

import (
	"bytes"
	"encoding/json"

	"github.com/pteroexporter/pteroexporter/pkg/types"
)

// listResponse is the body of GET /api/application/servers.
type listResponse struct {
	Data []serverObject `json:"data"`
	Meta struct {
		Pagination pagination `json:"pagination"`
	} `json:"meta"`
}

type pagination struct {
	Total       int `json:"total"`
	Count       int `json:"count"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

type serverObject struct {
	Attributes serverAttributes `json:"attributes"`
}

type serverAttributes struct {
	Identifier string     `json:"identifier"`
	Name       string     `json:"name"`
	Node       flexString `json:"node"`
	Limits     struct {
		CPU    float64 `json:"cpu"`
		Memory float64 `json:"memory"`
		Disk   float64 `json:"disk"`
	} `json:"limits"`
	Relationships struct {
		Egg *struct {
			Attributes struct {
				Name string `json:"name"`
			} `json:"attributes"`
		} `json:"egg"`
	} `json:"relationships"`
}

func (a serverAttributes) toServer() types.Server {
	s := types.Server{
		Identifier: a.Identifier,
		Name:       a.Name,
		Node:       string(a.Node),
		Limits: types.Limits{
			CPU:    a.Limits.CPU,
			Memory: a.Limits.Memory,
			Disk:   a.Limits.Disk,
		},
	}
	if egg := a.Relationships.Egg; egg != nil {
		s.Egg = egg.Attributes.Name
	}
	return s
}

// resourcesResponse is the body of GET /api/client/servers/{id}/resources.
type resourcesResponse struct {
	Attributes struct {
		CurrentState string `json:"current_state"`
		Resources    struct {
			CPUAbsolute    float64 `json:"cpu_absolute"`
			MemoryBytes    float64 `json:"memory_bytes"`
			DiskBytes      float64 `json:"disk_bytes"`
			NetworkRxBytes float64 `json:"network_rx_bytes"`
			NetworkTxBytes float64 `json:"network_tx_bytes"`
		} `json:"resources"`
	} `json:"attributes"`
}

// flexString accepts a JSON string or number. The panel reports node as an
// integer id, proxies and older versions sometimes as a string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
