package render

import (
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// Renderer prints the result of a use case
type Renderer[T any] interface {
	Render(result T) error
}

var (
	_ Renderer[*models.DeploymentPlan]   = (*PlanRenderer)(nil)
	_ Renderer[*usecase.DeployDAOResult] = (*DeployRenderer)(nil)
)
