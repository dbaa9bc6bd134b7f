package domain

// Graph is the dependency closure of one root task, ordered into layers.
// Layer 0 holds tasks with no dependencies; every later layer depends only
// on earlier ones. The root task is always a member of the final layer.
type Graph struct {
	root   string
	order  []string   // reachable tasks in DFS post-order, root last
	layers [][]string // topological layers
}

// Root returns the root task name.
func (g *Graph) Root() string { return g.root }

// Layers returns the topological layers, dependencies first. Within a
// layer, tasks keep their first-visit order.
func (g *Graph) Layers() [][]string { return g.layers }

// Order returns every reachable task in DFS post-order: dependencies come
// before their dependents and the root task is last.
func (g *Graph) Order() []string { return g.order }

// BuildGraph walks depends_on edges from root over the effective task set.
// It returns a TaskNotFoundError for a missing target and a CycleError
// naming every member of a dependency cycle.
func BuildGraph(root string, tasks map[string]*Task) (*Graph, error) {
	if _, ok := tasks[root]; !ok {
		return nil, &TaskNotFoundError{Name: root}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var order []string
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			start := 0
			for i, n := range path {
				if n == name {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, path[start:]...), name)
			return &CycleError{Kind: "depends_on", Nodes: cycle}
		}
		task, ok := tasks[name]
		if !ok {
			return &TaskNotFoundError{Name: name}
		}
		color[name] = gray
		path = append(path, name)
		for _, dep := range task.DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		order = append(order, name)
		return nil
	}
	if err := visit(root); err != nil {
		return nil, err
	}

	// Layering: a task's layer is one past the deepest of its dependencies.
	// Iterating in post-order guarantees dependencies are placed first, and
	// appending preserves first-visit order inside each layer.
	depth := make(map[string]int, len(order))
	var layers [][]string
	for _, name := range order {
		d := 0
		for _, dep := range tasks[name].DependsOn {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[name] = d
		for len(layers) <= d {
			layers = append(layers, nil)
		}
		layers[d] = append(layers[d], name)
	}

	return &Graph{root: root, order: order, layers: layers}, nil
}
