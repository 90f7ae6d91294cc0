package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// AppliedPermission is reported for every rule written to the permission table
type AppliedPermission struct {
	Set  string
	Rule models.PermissionRule
}

// ConfigurePermissions programs the permission table. Rules are applied in
// configuration order, never skipped or reordered, since later rules may
// narrow or override earlier ones.
type ConfigurePermissions struct {
	submitter *Submitter
	abis      ABIResolver
	progress  ProgressSink
	log       *slog.Logger
}

// NewConfigurePermissions creates a new permission configurator
func NewConfigurePermissions(submitter *Submitter, abis ABIResolver, progress ProgressSink, log *slog.Logger) *ConfigurePermissions {
	return &ConfigurePermissions{
		submitter: submitter,
		abis:      abis,
		progress:  progress,
		log:       log,
	}
}

// Run applies every enabled permission set
func (c *ConfigurePermissions) Run(ctx context.Context, state *RunState) error {
	plan := state.Plan
	if len(plan.PermissionSets) == 0 {
		return nil
	}
	if plan.PermissionRegistry == "" {
		return domain.Configf("permissions", "permission rules configured without a permission registry")
	}
	table, err := state.Registry.Resolve(plan.PermissionRegistry)
	if err != nil {
		return err
	}

	for _, set := range plan.PermissionSets {
		if !set.Always && !state.Deployed(set.Gate) {
			c.progress.Info(fmt.Sprintf("Skipping %s permissions: %s was imported", set.Scope, set.Gate))
			continue
		}

		scope := state.scope(set.Anchor)
		for i, rule := range set.Rules {
			args, err := c.ruleArgs(scope, rule)
			if err != nil {
				return fmt.Errorf("%s permission #%d: %w", set.Scope, i, err)
			}
			_, err = c.submitter.Send(ctx, CallRequest{
				Target: table,
				Label:  plan.PermissionRegistry,
				Kind:   plan.Kind(plan.PermissionRegistry),
				Method: "setPermission",
				Args:   args,
			}, "")
			if err != nil {
				return fmt.Errorf("failed to apply %s permission #%d (%s): %w", set.Scope, i, rule, err)
			}

			c.log.Debug("permission applied", "set", set.Scope, "rule", rule.String())
			c.progress.OnProgress(ctx, ProgressEvent{
				Stage:    StagePermission,
				Current:  i + 1,
				Total:    len(set.Rules),
				Message:  rule.String(),
				Metadata: AppliedPermission{Set: set.Scope, Rule: rule},
			})
		}
	}
	return nil
}

// ruleArgs builds setPermission(asset, from, to, functionSignature, valueAllowed, allowed)
func (c *ConfigurePermissions) ruleArgs(scope callScope, rule models.PermissionRule) ([]any, error) {
	asset, err := scope.Resolve(rule.Asset)
	if err != nil {
		return nil, err
	}
	caller, err := scope.Resolve(rule.Caller)
	if err != nil {
		return nil, err
	}
	callee, err := scope.Resolve(rule.Callee)
	if err != nil {
		return nil, err
	}

	selector, err := models.ParseSelector(rule.Selector)
	if err != nil {
		return nil, domain.Configf("functionSignature", "%v", err)
	}
	if !selector.Resolved() {
		kind := scope.kind(rule.Callee)
		if kind == "" {
			return nil, domain.Configf("functionSignature", "method %q needs a named callee to look up its selector", selector.Method)
		}
		id, err := c.abis.Selector(kind, selector.Method)
		if err != nil {
			return nil, domain.Configf("functionSignature", "%v", err)
		}
		selector.ID = id
	}

	return []any{asset, caller, callee, selector.ID, rule.ValueCap.Int(), rule.Allowed}, nil
}
