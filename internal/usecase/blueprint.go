package usecase

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// Logical names of the core components
const (
	NameReputation         = "Reputation"
	NameAvatar             = "Avatar"
	NameController         = "Controller"
	NamePermissionRegistry = "PermissionRegistry"
	NameVotingMachine      = "VotingMachine"
)

// Default artifact kinds
const (
	defaultReputationKind    = "DxReputation"
	defaultTokenKind         = "ERC20Mock"
	defaultAvatarKind        = "DxAvatar"
	defaultControllerKind    = "DxController"
	defaultPermissionKind    = "PermissionRegistry"
	defaultVotingMachineKind = "DXDVotingMachine"
	defaultSchemeKind        = "WalletScheme"
)

// Controller permission bits, encoded as bytes4
const (
	permRegistered           = 1 << 0
	permCanRegisterSchemes   = 1 << 1
	permCanChangeConstraints = 1 << 2
	permCanUpgrade           = 1 << 3
	permCanGenericCall       = 1 << 4
)

// BlueprintOptions carries run inputs the configuration does not hold
type BlueprintOptions struct {
	// Deployer receives initial token supplies
	Deployer common.Address

	// Resumed binds components recorded by a previous run, turning them into imports
	Resumed map[string]common.Address
}

// BuildPlan expands a deployment configuration into the standard DAO
// deployment plan.
func BuildPlan(cfg *config.DeploymentConfig, opts BlueprintOptions) (*models.DeploymentPlan, error) {
	b := &blueprint{cfg: cfg, opts: opts}
	return b.build()
}

type blueprint struct {
	cfg   *config.DeploymentConfig
	opts  BlueprintOptions
	specs []*models.ComponentSpec
	links []models.Invocation
	sets  []models.PermissionSet
}

func (b *blueprint) build() (*models.DeploymentPlan, error) {
	cfg := b.cfg
	name := lo.Ternary(cfg.Name != "", cfg.Name, "dao")

	if len(cfg.Tokens) == 0 {
		return nil, domain.Configf("tokens", "at least one token is required")
	}
	token := cfg.GovernanceToken
	if token == "" {
		token = cfg.Tokens[0].Symbol
	}

	steps := []func(token string) error{
		b.addReputation,
		b.addTokens,
		b.addCore,
		b.addVotingMachine,
		b.addSchemes,
		b.addComponents,
		b.addPipeline,
	}
	for _, step := range steps {
		if err := step(token); err != nil {
			return nil, err
		}
	}

	if err := b.applyImports(); err != nil {
		return nil, err
	}

	plan, err := models.NewDeploymentPlan(name, b.specs)
	if err != nil {
		return nil, err
	}
	plan.PermissionRegistry = NamePermissionRegistry
	plan.GovernanceToken = token
	if cfg.VotingMachine != nil {
		plan.VotingMachine = lo.Ternary(cfg.VotingMachine.Name != "", cfg.VotingMachine.Name, NameVotingMachine)
	}

	plan.Links = append(b.links, cfg.Links...)
	global, err := b.globalPermissions()
	if err != nil {
		return nil, err
	}
	plan.PermissionSets = append(b.sets, global...)
	plan.Handoffs = cfg.Handoffs
	plan.Actions = cfg.Actions

	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (b *blueprint) add(spec *models.ComponentSpec, ref config.ComponentRef, field string) error {
	if ref.Kind != "" {
		spec.Kind = ref.Kind
	}
	spec.Mode = models.ModeDeploy
	if ref.Address != "" {
		if !common.IsHexAddress(ref.Address) {
			return domain.Configf(field+".address", "invalid address %q", ref.Address)
		}
		spec.Mode = models.ModeImport
		spec.Address = common.HexToAddress(ref.Address)
	}
	b.specs = append(b.specs, spec)
	return nil
}

func (b *blueprint) addReputation(string) error {
	spec := &models.ComponentSpec{Name: NameReputation, Kind: defaultReputationKind, Group: models.GroupCore}
	if founders := b.cfg.Reputation.Founders; len(founders) > 0 {
		holders := make([]string, len(founders))
		amounts := make([]any, len(founders))
		for i, f := range founders {
			if f.Address == "" {
				return domain.Configf(fmt.Sprintf("reputation.founders[%d].address", i), "address is required")
			}
			holders[i] = f.Address
			amounts[i] = f.Amount.String()
		}
		spec.PostCreate = append(spec.PostCreate, models.Invocation{
			Target: models.SelfPlaceholder,
			Method: "mintMultiple",
			Args:   []models.Arg{models.RefsArg(holders...), models.Lit(amounts)},
		})
	}
	return b.add(spec, b.cfg.Reputation.ComponentRef, "reputation")
}

func (b *blueprint) addTokens(string) error {
	for i, t := range b.cfg.Tokens {
		field := fmt.Sprintf("tokens[%d]", i)
		if t.Symbol == "" {
			return domain.Configf(field+".symbol", "symbol is required")
		}

		supply := new(big.Int)
		for _, d := range t.Distribution {
			supply.Add(supply, d.Amount.Int())
		}
		args := t.Args
		if args == nil {
			args = []models.Arg{models.Lit(b.opts.Deployer.Hex()), models.Lit(supply.String())}
		}

		spec := &models.ComponentSpec{Name: t.Symbol, Kind: defaultTokenKind, Group: models.GroupToken, Args: args}
		for j, d := range t.Distribution {
			if d.Address == "" {
				return domain.Configf(fmt.Sprintf("%s.distribution[%d].address", field, j), "address is required")
			}
			spec.PostCreate = append(spec.PostCreate, models.Invocation{
				Target: models.SelfPlaceholder,
				Method: "transfer",
				Args:   []models.Arg{models.RefArg(d.Address), models.Lit(d.Amount.String())},
			})
		}
		if err := b.add(spec, t.ComponentRef, field); err != nil {
			return err
		}
	}
	return nil
}

func (b *blueprint) addCore(token string) error {
	daoName := lo.Ternary(b.cfg.DAOName != "", b.cfg.DAOName, b.cfg.Name)

	avatar := &models.ComponentSpec{
		Name:  NameAvatar,
		Kind:  defaultAvatarKind,
		Group: models.GroupCore,
		Args:  []models.Arg{models.Lit(daoName), models.RefArg(token), models.RefArg(NameReputation)},
	}
	if err := b.add(avatar, b.cfg.Avatar, "avatar"); err != nil {
		return err
	}

	controller := &models.ComponentSpec{
		Name:  NameController,
		Kind:  defaultControllerKind,
		Group: models.GroupCore,
		Args:  []models.Arg{models.RefArg(NameAvatar)},
		PostCreate: []models.Invocation{
			{Target: NameAvatar, Method: "transferOwnership", Args: []models.Arg{models.RefArg(models.SelfPlaceholder)}},
			{Target: NameReputation, Method: "transferOwnership", Args: []models.Arg{models.RefArg(models.SelfPlaceholder)}},
		},
	}
	if err := b.add(controller, b.cfg.Controller, "controller"); err != nil {
		return err
	}

	registry := &models.ComponentSpec{
		Name:      NamePermissionRegistry,
		Kind:      defaultPermissionKind,
		Group:     models.GroupCore,
		DependsOn: []string{NameController},
		PostCreate: []models.Invocation{
			{Target: models.SelfPlaceholder, Method: "initialize"},
		},
	}
	return b.add(registry, b.cfg.PermissionRegistry, "permissionRegistry")
}

func (b *blueprint) addVotingMachine(token string) error {
	vm := b.cfg.VotingMachine
	if vm == nil {
		return nil
	}
	args := vm.Args
	if args == nil {
		args = []models.Arg{models.RefArg(lo.Ternary(vm.Token != "", vm.Token, token))}
	}
	spec := &models.ComponentSpec{
		Name:  lo.Ternary(vm.Name != "", vm.Name, NameVotingMachine),
		Kind:  defaultVotingMachineKind,
		Group: models.GroupVotingMachine,
		Args:  args,
	}
	return b.add(spec, vm.ComponentRef, "votingMachine")
}

func (b *blueprint) addSchemes(string) error {
	var vmName string
	if b.cfg.VotingMachine != nil {
		vmName = lo.Ternary(b.cfg.VotingMachine.Name != "", b.cfg.VotingMachine.Name, NameVotingMachine)
	}
	always := b.cfg.PermissionsApply == "always"

	for i, s := range b.cfg.WalletSchemes {
		field := fmt.Sprintf("walletSchemes[%d]", i)
		if s.Name == "" {
			return domain.Configf(field+".name", "name is required")
		}

		params := models.Lit(votingParams(s))
		nullAddr := models.Lit(models.ZeroAddress.Hex())
		var post []models.Invocation
		paramsHash := models.Lit(common.Hash{}.Hex())
		initArgs := []models.Arg{models.RefArg(NameAvatar)}

		if vmName != "" {
			post = append(post, models.Invocation{
				Target: vmName,
				Method: "setParameters",
				Args:   []models.Arg{params, nullAddr},
			})
			paramsHash = models.CallArg(models.Invocation{
				Target: vmName,
				Method: "getParametersHash",
				Args:   []models.Arg{params, nullAddr},
			})
			initArgs = append(initArgs, models.RefsArg(vmName))
		}
		initArgs = append(initArgs,
			models.Lit(s.DoAvatarGenericCalls),
			models.RefArg(NameController),
			models.RefArg(NamePermissionRegistry),
			models.Lit(s.Name),
			models.Lit(s.MaxSecondsForExecution.String()),
			models.Lit(s.MaxRepPercentageChange.String()),
		)

		post = append(post,
			models.Invocation{Target: models.SelfPlaceholder, Method: "initialize", Args: initArgs},
			models.Invocation{
				Target: NameController,
				Method: "registerScheme",
				Args: []models.Arg{
					models.RefArg(models.SelfPlaceholder),
					paramsHash,
					models.Lit(EncodePermission(s.ControllerPermissions)),
					models.RefArg(NameAvatar),
				},
			},
		)

		spec := &models.ComponentSpec{
			Name:       s.Name,
			Kind:       defaultSchemeKind,
			Group:      models.GroupScheme,
			DependsOn:  []string{NameAvatar, NameController, NamePermissionRegistry},
			PostCreate: post,
		}
		if err := b.add(spec, s.ComponentRef, field); err != nil {
			return err
		}

		if len(s.Permissions) > 0 {
			caller := lo.Ternary(s.DoAvatarGenericCalls, NameAvatar, models.SelfPlaceholder)
			rules := make([]models.PermissionRule, len(s.Permissions))
			for j, rule := range s.Permissions {
				if rule.Caller == "" {
					rule.Caller = caller
				}
				rules[j] = rule
			}
			b.sets = append(b.sets, models.PermissionSet{
				Scope:  s.Name,
				Anchor: s.Name,
				Gate:   s.Name,
				Always: always,
				Rules:  rules,
			})
		}
	}
	return nil
}

func (b *blueprint) addComponents(string) error {
	for i, c := range b.cfg.Components {
		field := fmt.Sprintf("components[%d]", i)
		if c.Name == "" {
			return domain.Configf(field+".name", "name is required")
		}
		spec := &models.ComponentSpec{
			Name:       c.Name,
			Kind:       c.Name,
			Group:      models.ComponentGroup(lo.Ternary(c.Group != "", c.Group, string(models.GroupUtil))),
			Args:       c.Args,
			DependsOn:  c.DependsOn,
			Libraries:  c.Libraries,
			PostCreate: c.Post,
		}
		if err := b.add(spec, c.ComponentRef, field); err != nil {
			return err
		}
	}
	return nil
}

func (b *blueprint) addPipeline(string) error {
	stages := b.cfg.Pipeline.Stages
	for i, st := range stages {
		field := fmt.Sprintf("pipeline.stages[%d]", i)
		if st.Name == "" {
			return domain.Configf(field+".name", "name is required")
		}

		spec := &models.ComponentSpec{
			Name:      st.Name,
			Kind:      st.Name,
			Group:     models.GroupPipeline,
			Args:      st.Args,
			DependsOn: append([]string{}, st.DependsOn...),
		}
		if i > 0 {
			spec.DependsOn = append(spec.DependsOn, stages[i-1].Name)
		}

		// helper libraries only exist for stages created in this run
		libs := lo.Ternary(st.Libraries != nil, st.Libraries, b.cfg.Pipeline.Libraries)
		if st.Address == "" && b.importAddress(st.Name) == "" && len(libs) > 0 {
			spec.Libraries = make(map[string]string, len(libs))
			for _, lib := range libs {
				libName := st.Name + "." + lib
				spec.Libraries[lib] = libName
				if err := b.add(&models.ComponentSpec{Name: libName, Kind: lib, Group: models.GroupLibrary}, config.ComponentRef{}, field+".libraries"); err != nil {
					return err
				}
			}
		}
		if err := b.add(spec, st.ComponentRef, field); err != nil {
			return err
		}

		if st.LinkNext != "" && i+1 < len(stages) {
			b.links = append(b.links, models.Invocation{
				Target: st.Name, Method: st.LinkNext, Args: []models.Arg{models.RefArg(stages[i+1].Name)},
			})
		}
		if st.LinkPrev != "" && i > 0 {
			b.links = append(b.links, models.Invocation{
				Target: st.Name, Method: st.LinkPrev, Args: []models.Arg{models.RefArg(stages[i-1].Name)},
			})
		}
		setters := lo.Keys(st.Managers)
		sort.Strings(setters)
		for _, setter := range setters {
			b.links = append(b.links, models.Invocation{
				Target: st.Name, Method: setter, Args: []models.Arg{models.RefArg(st.Managers[setter])},
			})
		}
		for _, r := range st.Registrars {
			b.links = append(b.links, models.Invocation{
				Target: r.Target, Method: r.Method, Args: []models.Arg{models.RefArg(st.Name)},
			})
		}
	}
	return nil
}

func (b *blueprint) globalPermissions() ([]models.PermissionSet, error) {
	var rules []models.PermissionRule
	for i, d := range b.cfg.Permissions.Deny {
		if len(d.Methods) == 0 {
			return nil, domain.Configf(fmt.Sprintf("permissions.deny[%d].methods", i), "at least one method is required")
		}
		for _, m := range d.Methods {
			rules = append(rules, models.PermissionRule{
				Asset:    d.Asset,
				Caller:   d.Caller,
				Callee:   d.Callee,
				Selector: m,
				ValueCap: models.NewAmount(models.MaxUint256),
				Allowed:  false,
			})
		}
	}
	rules = append(rules, b.cfg.Permissions.Rules...)
	if len(rules) == 0 {
		return nil, nil
	}
	return []models.PermissionSet{{
		Scope:  "global",
		Gate:   NamePermissionRegistry,
		Always: b.cfg.PermissionsApply == "always",
		Rules:  rules,
	}}, nil
}

func (b *blueprint) importAddress(name string) string {
	if addr, ok := b.cfg.Imports[name]; ok {
		return addr
	}
	if addr, ok := b.opts.Resumed[name]; ok {
		return addr.Hex()
	}
	return ""
}

// applyImports turns components listed in the imports map, or recorded by a
// resumed run, into import-mode specs.
func (b *blueprint) applyImports() error {
	known := lo.SliceToMap(b.specs, func(s *models.ComponentSpec) (string, *models.ComponentSpec) {
		return s.Name, s
	})
	for name, addr := range b.cfg.Imports {
		spec, ok := known[name]
		if !ok {
			return domain.Configf("imports."+name, "no component named %q", name)
		}
		if !common.IsHexAddress(addr) {
			return domain.Configf("imports."+name, "invalid address %q", addr)
		}
		spec.Mode = models.ModeImport
		spec.Address = common.HexToAddress(addr)
	}
	for name, addr := range b.opts.Resumed {
		if spec, ok := known[name]; ok && !spec.IsImport() {
			spec.Mode = models.ModeImport
			spec.Address = addr
		}
	}
	return nil
}

// validatePlan checks references and the action script before any chain call
func validatePlan(plan *models.DeploymentPlan) error {
	checkRefs := func(field string, refs []string) error {
		for _, ref := range refs {
			if _, ok := plan.Component(ref); !ok {
				return domain.Configf(field, "unknown component %q", ref)
			}
		}
		return nil
	}

	for i, link := range plan.Links {
		if err := checkRefs(fmt.Sprintf("links[%d]", i), link.References()); err != nil {
			return err
		}
	}
	for i, h := range plan.Handoffs {
		if err := checkRefs(fmt.Sprintf("handoffs[%d]", i), h.References()); err != nil {
			return err
		}
	}

	for _, set := range plan.PermissionSets {
		for i, rule := range set.Rules {
			field := fmt.Sprintf("permissions(%s)[%d]", set.Scope, i)
			sel, err := models.ParseSelector(rule.Selector)
			if err != nil {
				return domain.Configf(field+".functionSignature", "%v", err)
			}
			if !sel.Resolved() && !models.IsLogicalName(rule.Callee) && !(models.IsSelfRef(rule.Callee) && set.Anchor != "") {
				return domain.Configf(field+".functionSignature", "method %q needs a named callee", sel.Method)
			}
			if set.Anchor == "" && (models.IsSelfRef(rule.Caller) || models.IsSelfRef(rule.Callee)) {
				return domain.Configf(field, "%s is only valid in scheme permissions", models.SelfPlaceholder)
			}
			if err := checkRefs(field, lo.Filter([]string{rule.Asset, rule.Caller, rule.Callee}, func(r string, _ int) bool {
				return models.IsLogicalName(r)
			})); err != nil {
				return err
			}
		}
	}

	proposals := 0
	for i, action := range plan.Actions {
		field := fmt.Sprintf("actions[%d]", i)
		if action.Data == nil {
			return domain.Configf(field+".data", "data is required")
		}
		switch data := action.Data.(type) {
		case models.TransferData:
			if data.Address == "" {
				return domain.Configf(field+".data.address", "recipient is required")
			}
		case models.ApproveData:
			if models.IsNullRef(data.Asset) || data.Address == "" {
				return domain.Configf(field+".data", "approve needs an asset and a spender")
			}
		case models.ProposalData:
			if data.Scheme == "" {
				return domain.Configf(field+".data.scheme", "scheme is required")
			}
			if !strings.Contains(plan.Kind(data.Scheme), "ContributionReward") &&
				(len(data.To) != len(data.CallData) || len(data.To) != len(data.Value)) {
				return domain.Configf(field+".data", "to, callData and value must have the same length")
			}
			proposals++
		}
		if ref, ok := action.Data.(models.ProposalReferencing); ok {
			if plan.VotingMachine == "" {
				return domain.Configf(field, "%s action needs a votingMachine", action.Type)
			}
			if int(ref.ProposalRef()) >= proposals {
				return domain.Configf(field+".data.proposal", "proposal #%d is not created by an earlier proposal action", ref.ProposalRef())
			}
		}
	}
	return nil
}

// votingParams lists the voting machine parameters in contract order
func votingParams(s config.SchemeConfig) []any {
	return []any{
		s.QueuedVoteRequiredPercentage.String(),
		s.QueuedVotePeriodLimit.String(),
		s.BoostedVotePeriodLimit.String(),
		s.PreBoostedVotePeriodLimit.String(),
		s.ThresholdConst.String(),
		s.QuietEndingPeriod.String(),
		s.ProposingRepReward.String(),
		s.VotersReputationLossRatio.String(),
		s.MinimumDaoBounty.String(),
		s.DaoBountyConst.String(),
		"0",
	}
}

// EncodePermission packs controller permission flags into bytes4 hex
func EncodePermission(p config.ControllerPermissions) string {
	bits := permRegistered
	if p.CanRegisterSchemes {
		bits |= permCanRegisterSchemes
	}
	if p.CanChangeConstraints {
		bits |= permCanChangeConstraints
	}
	if p.CanUpgrade {
		bits |= permCanUpgrade
	}
	if p.CanGenericCall {
		bits |= permCanGenericCall
	}
	return fmt.Sprintf("0x%08x", bits)
}
