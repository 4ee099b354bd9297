package container

import (
	app "defect-bot/internal/application"
	"defect-bot/internal/domain/port"
)

type Container struct {
	UserService       *app.UserService
	InspectionService *app.InspectionService
	CatalogService    *app.CatalogService
}

type Deps struct {
	Users     port.UserRepository
	Inspector port.VisionInspector // nil — визуальный конвейер выключен
	Embedder  port.Embedder
	Profiles  port.ProfileRepository
	Incidents port.IncidentRepository
	Catalog   port.CatalogRepository
	Matcher   app.MatcherConfig
	MatchOnOK bool
}

func New(deps Deps) *Container {
	userService := app.NewUserService(deps.Users)
	matcher := app.NewMatcher(deps.Matcher, deps.Embedder)
	inspectionService := app.NewInspectionService(
		userService,
		deps.Inspector,
		deps.Embedder,
		matcher,
		deps.Profiles,
		deps.Incidents,
		deps.MatchOnOK,
	)
	catalogService := app.NewCatalogService(deps.Catalog, deps.Profiles, deps.Embedder)

	return &Container{
		UserService:       userService,
		InspectionService: inspectionService,
		CatalogService:    catalogService,
	}
}
