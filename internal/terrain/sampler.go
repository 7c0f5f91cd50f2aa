package terrain

// Sampler — точка входа для построения рельефа. Создаётся один раз
// на генерацию и не изменяется между вызовами Sample.
type Sampler struct {
	expr *Expression
}

// NewSampler проверяет дерево выражения и оборачивает его
func NewSampler(expr *Expression) (*Sampler, error) {
	if err := expr.Validate(); err != nil {
		return nil, err
	}
	return &Sampler{expr: expr}, nil
}

// Sample возвращает высоту рельефа в точке (x, y)
func (s *Sampler) Sample(x, y float64) float64 {
	return s.expr.Sample(x, y)
}

// Expression возвращает выражение, которым построен сэмплер
func (s *Sampler) Expression() *Expression {
	return s.expr
}
