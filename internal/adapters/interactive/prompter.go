package interactive

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// PrompterAdapter asks the operator before anything is broadcast
type PrompterAdapter struct {
	config *config.RuntimeConfig
}

// NewPrompterAdapter creates a new prompter adapter
func NewPrompterAdapter(cfg *config.RuntimeConfig) *PrompterAdapter {
	return &PrompterAdapter{config: cfg}
}

// Confirm asks a yes/no question. Answering no, or interrupting the
// prompt, returns false without an error.
func (p *PrompterAdapter) Confirm(ctx context.Context, message string) (bool, error) {
	if p.config.NonInteractive {
		return false, fmt.Errorf("confirmation not available in non-interactive mode: %s", message)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	prompt := promptui.Prompt{
		Label:     message,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	return confirmed(err)
}

func confirmed(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort), errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF):
		return false, nil
	default:
		return false, fmt.Errorf("prompt failed: %w", err)
	}
}

// Ensure PrompterAdapter implements InteractivePrompter
var _ usecase.InteractivePrompter = (*PrompterAdapter)(nil)
