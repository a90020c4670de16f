package workflow

// ItemsFunc produces the collection a ForEach iterates.
type ItemsFunc func(wctx *Context) []any

// ForEachStep runs its body once per item.
type ForEachStep struct {
	name  string
	items ItemsFunc
	body  []Step
}

// ForEach runs body for every item returned by items. items is evaluated
// once, on entry. Before each iteration the current item and its index are
// stored under KeyCurrentItem and KeyCurrentIndex.
func ForEach(name string, items ItemsFunc, body ...Step) *ForEachStep {
	return &ForEachStep{name: name, items: items, body: body}
}

func (s *ForEachStep) Name() string { return s.name }
func (s *ForEachStep) Kind() Kind   { return KindForEach }

func (s *ForEachStep) Execute(wctx *Context) error {
	var items []any
	if s.items != nil {
		items = s.items(wctx)
	}

	wctx.Set(KeyCurrentIndex, 0)
	for i, item := range items {
		wctx.Set(KeyCurrentItem, item)
		wctx.Set(KeyCurrentIndex, i)

		stop, err := runGuardedBody(wctx, s.body)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

// LoopStep repeats its body while a condition holds. It backs both While
// and DoWhile.
type LoopStep struct {
	name      string
	cond      Predicate
	body      []Step
	bodyFirst bool
}

// While evaluates cond before every iteration and runs body while it holds.
func While(name string, cond Predicate, body ...Step) *LoopStep {
	return &LoopStep{name: name, cond: cond, body: body}
}

// DoWhile runs body once and then repeats it while cond holds.
func DoWhile(name string, cond Predicate, body ...Step) *LoopStep {
	return &LoopStep{name: name, cond: cond, body: body, bodyFirst: true}
}

func (s *LoopStep) Name() string { return s.name }

func (s *LoopStep) Kind() Kind {
	if s.bodyFirst {
		return KindDoWhile
	}
	return KindWhile
}

func (s *LoopStep) Execute(wctx *Context) error {
	for iter := 0; ; iter++ {
		if !s.bodyFirst || iter > 0 {
			if s.cond == nil || !s.cond(wctx) {
				return nil
			}
		}
		wctx.Set(KeyLoopIteration, iter)

		stop, err := runGuardedBody(wctx, s.body)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
		// An empty body never yields to the guard, so check here too.
		if len(s.body) == 0 {
			if err := wctx.ctx.Err(); err != nil {
				return err
			}
			if wctx.Aborted() {
				return nil
			}
		}
	}
}
