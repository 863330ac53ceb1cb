package variables

import (
	"strings"

	"github.com/ritzau/pipeline-builder/pkg/model"
)

// Declarer decides whether a node declares a variable
type Declarer interface {
	DeclaredName(n *model.Node) (model.Variable, bool)
}

// Catalog lists the variables declared by nodes, in node iteration order.
// Duplicate names are kept; see Resolve for how a name picks one declarer.
func Catalog(nodes []*model.Node, d Declarer) []model.Variable {
	vars := make([]model.Variable, 0)
	for _, n := range nodes {
		if v, ok := d.DeclaredName(n); ok {
			vars = append(vars, v)
		}
	}
	return vars
}

// Resolve picks the declarer of name among nodes. When several nodes declare the
// same name the one with the lowest rank wins (the store ranks by creation order);
// equal ranks fall back to iteration order.
func Resolve(nodes []*model.Node, d Declarer, name string, rank func(nodeID string) uint64) (model.Variable, bool) {
	var (
		best     model.Variable
		bestRank uint64
		found    bool
	)
	for _, n := range nodes {
		v, ok := d.DeclaredName(n)
		if !ok || v.Name != name {
			continue
		}
		r := rank(n.ID)
		if !found || r < bestRank {
			best, bestRank, found = v, r, true
		}
	}
	return best, found
}

// Filter returns the entries whose name contains term, case-insensitively.
// An empty term matches everything.
func Filter(vars []model.Variable, term string) []model.Variable {
	if term == "" {
		out := make([]model.Variable, len(vars))
		copy(out, vars)
		return out
	}

	needle := strings.ToLower(term)
	out := make([]model.Variable, 0, len(vars))
	for _, v := range vars {
		if strings.Contains(strings.ToLower(v.Name), needle) {
			out = append(out, v)
		}
	}
	return out
}
