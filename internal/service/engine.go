package service

// Engine bundles every engine over one set of collaborators. It is the
// service surface handed to callers.
type Engine struct {
	*PoolService
	*BracketService
	*StandingsService
	*AdvancementService
	*GameService
	*Validator
}

func NewEngine(d Deps) *Engine {
	advancement := NewAdvancementService(d)
	return &Engine{
		PoolService:        NewPoolService(d),
		BracketService:     NewBracketService(d),
		StandingsService:   NewStandingsService(d),
		AdvancementService: advancement,
		GameService:        NewGameService(d, advancement),
		Validator:          NewValidator(d),
	}
}
