package dist

// Pool is a LIFO free list of Builder allocations, letting benchmark loops
// reuse bin storage instead of reallocating every iteration. Not safe for
// concurrent use; Get and Put must happen on the goroutine that owns the
// pool.
type Pool struct {
	free []*Builder
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{free: []*Builder{}}
}

// Get pops the most recently recycled Builder, or allocates a fresh one when
// the pool is empty. The returned Builder is always empty.
func (p *Pool) Get() *Builder {
	if len(p.free) == 0 {
		return NewBuilder()
	}

	last := len(p.free) - 1
	recycled := p.free[last]
	p.free[last] = nil
	p.free = p.free[:last]

	return recycled
}

// Put recycles a live Builder, clearing its bins but keeping the allocation.
func (p *Pool) Put(b *Builder) {
	b.ensureLive()

	b.bins = b.bins[:0]
	p.free = append(p.free, b)
}

// PutDistribution consumes a built Distribution and recycles its storage.
func (p *Pool) PutDistribution(d *Distribution) {
	p.Put(d.Reset())
}

// Size returns the number of idle Builders held by the pool.
func (p *Pool) Size() int {
	return len(p.free)
}

// Recyclable alternates a single allocation between an empty Builder
// awaiting output and the built Distribution a previous pass produced, so
// repeated filter applications reuse storage instead of reallocating.
// It holds exactly one of the two at a time.
type Recyclable struct {
	builder *Builder
	built   *Distribution
}

// NewRecyclable returns a Recyclable holding a fresh empty Builder.
func NewRecyclable() *Recyclable {
	return &Recyclable{builder: NewBuilder()}
}

// TakeBuilder hands out an empty Builder, recycling the stored
// Distribution's allocation when one is held. The Recyclable is left empty
// until the next Store or StoreBuilder.
func (r *Recyclable) TakeBuilder() *Builder {
	if r.built != nil {
		taken := r.built.Reset()
		r.built = nil

		return taken
	}

	if r.builder == nil {
		return NewBuilder()
	}

	taken := r.builder
	r.builder = nil

	return taken
}

// Store parks a built Distribution, making it available through Stored.
func (r *Recyclable) Store(d *Distribution) {
	d.ensureLive()

	r.built = d
	r.builder = nil
}

// StoreBuilder parks an unused Builder, leaving Stored absent.
func (r *Recyclable) StoreBuilder(b *Builder) {
	b.ensureLive()

	r.builder = b
	r.built = nil
}

// Stored returns the held Distribution, or nil when the Recyclable holds a
// Builder instead.
func (r *Recyclable) Stored() *Distribution {
	return r.built
}
