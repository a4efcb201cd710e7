package poimodel

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
)

// ClusterRepresentative stands in for several nearby POIs on the map.
// It owns its member list for the duration of one computation pass.
type ClusterRepresentative struct {
	ID       string
	Centroid orb.Point
	Members  []POI
}

func (c *ClusterRepresentative) Size() int { return len(c.Members) }

// Bound returns the geographic rectangle covering all members, used by the
// renderer to fit the map on a cluster click.
func (c *ClusterRepresentative) Bound() orb.Bound {
	mp := make(orb.MultiPoint, len(c.Members))
	for i, m := range c.Members {
		mp[i] = m.Point
	}
	return mp.Bound()
}

// ItemKind tags the RenderItem union.
type ItemKind uint8

const (
	KindPOI ItemKind = iota + 1
	KindCluster
)

func (k ItemKind) String() string {
	switch k {
	case KindPOI:
		return "poi"
	case KindCluster:
		return "cluster"
	}
	return "unknown"
}

// RenderItem is what the rendering layer consumes: either an individual POI
// or a cluster representative, never both. Position is the display
// position; the offset resolver may nudge it away from the source
// coordinates without mutating the POI itself.
type RenderItem struct {
	Kind      ItemKind
	POI       *POI
	Cluster   *ClusterRepresentative
	Position  orb.Point
	ShowLabel bool
}

func IndividualItem(p *POI) RenderItem {
	return RenderItem{Kind: KindPOI, POI: p, Position: p.Point}
}

func ClusterItem(c *ClusterRepresentative) RenderItem {
	return RenderItem{Kind: KindCluster, Cluster: c, Position: c.Centroid}
}

// ID returns the identity of the underlying POI or cluster.
func (ri RenderItem) ID() string {
	switch ri.Kind {
	case KindPOI:
		return ri.POI.ID
	case KindCluster:
		return ri.Cluster.ID
	}
	return ""
}

type renderItemJSON struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Name        string   `json:"name,omitempty"`
	Genre       string   `json:"genre,omitempty"`
	Origin      string   `json:"origin,omitempty"`
	ShowLabel   bool     `json:"showLabel,omitempty"`
	ClusterSize int      `json:"clusterSize,omitempty"`
	MemberIDs   []string `json:"memberIds,omitempty"`
}

func (ri RenderItem) MarshalJSON() ([]byte, error) {
	out := renderItemJSON{
		Type:      ri.Kind.String(),
		ID:        ri.ID(),
		Lat:       ri.Position.Y(),
		Lng:       ri.Position.X(),
		ShowLabel: ri.ShowLabel,
	}
	switch ri.Kind {
	case KindPOI:
		out.Name = ri.POI.Name
		out.Genre = ri.POI.Genre
		out.Origin = ri.POI.Origin
	case KindCluster:
		out.ClusterSize = ri.Cluster.Size()
		out.MemberIDs = make([]string, len(ri.Cluster.Members))
		for i, m := range ri.Cluster.Members {
			out.MemberIDs[i] = m.ID
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON for API clients and tests. Cluster
// members come back as id-only POIs; the wire format does not carry their
// full records.
func (ri *RenderItem) UnmarshalJSON(data []byte) error {
	var in renderItemJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	pos := orb.Point{in.Lng, in.Lat}
	switch in.Type {
	case "poi":
		ri.Kind = KindPOI
		ri.POI = &POI{
			ID:     in.ID,
			Name:   in.Name,
			Genre:  in.Genre,
			Origin: in.Origin,
			Point:  pos,
		}
		ri.Cluster = nil
	case "cluster":
		ri.Kind = KindCluster
		members := make([]POI, len(in.MemberIDs))
		for i, id := range in.MemberIDs {
			members[i] = POI{ID: id, Point: pos}
		}
		ri.Cluster = &ClusterRepresentative{
			ID:       in.ID,
			Centroid: pos,
			Members:  members,
		}
		ri.POI = nil
	default:
		return fmt.Errorf("unknown render item type %q", in.Type)
	}
	ri.Position = pos
	ri.ShowLabel = in.ShowLabel
	return nil
}
