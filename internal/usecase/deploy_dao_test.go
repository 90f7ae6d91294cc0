package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// staticLoader hands out a fixed configuration
type staticLoader struct {
	cfg *config.DeploymentConfig
}

func (l staticLoader) Load(path string) (*config.DeploymentConfig, error) {
	return l.cfg, nil
}

// memDescriptors keeps written descriptors in memory
type memDescriptors struct {
	written map[string]*models.NetworkDescriptor
}

func newMemDescriptors() *memDescriptors {
	return &memDescriptors{written: make(map[string]*models.NetworkDescriptor)}
}

func (m *memDescriptors) Write(path string, d *models.NetworkDescriptor) error {
	m.written[path] = d
	return nil
}

func (m *memDescriptors) Read(path string) (*models.NetworkDescriptor, error) {
	if d, ok := m.written[path]; ok {
		return d, nil
	}
	return nil, domain.ErrNotFound
}

var controllerABI = staticABI{
	"DxController.registerScheme":   {0x2e, 0x4d, 0x4c, 0x9e},
	"DxController.unregisterScheme": {0x03, 0x9d, 0xe0, 0x1d},
}

type deployFixture struct {
	*harness
	store    *memDescriptors
	prompter *mockPrompter
	abis     ABIResolver
	cfg      *config.DeploymentConfig
}

// withoutArtifact reports one contract kind as not compiled
type withoutArtifact struct {
	staticABI
	missing string
}

func (w withoutArtifact) HasArtifact(kind string) bool { return kind != w.missing }

func newDeployFixture(t *testing.T) *deployFixture {
	h := newHarness()
	h.gateway.reads["DXDVotingMachine.getParametersHash"] = []any{[32]byte{0x42}}
	h.content.On("Put", mock.Anything, mock.Anything).Return(testDigest, nil)
	return &deployFixture{
		harness:  h,
		store:    newMemDescriptors(),
		prompter: &mockPrompter{},
		abis:     controllerABI,
		cfg:      loadFixture(t),
	}
}

func (f *deployFixture) useCase() *DeployDAO {
	senders := NewSenderBook(f.harness.cfg)
	planner := NewPlanDAO(staticLoader{cfg: f.cfg}, f.store, senders)
	return NewDeployDAO(
		f.harness.cfg,
		planner,
		f.gateway,
		senders,
		f.prompter,
		f.store,
		f.abis,
		f.submitter,
		f.provisioner(),
		f.linker(),
		f.permissions(controllerABI),
		f.interpreter(),
		f.sink,
		discardLogger(),
	)
}

func TestDeployDAO(t *testing.T) {
	ctx := context.Background()
	defaultOut := filepath.Join(".trebdao", "deployments", "dxdao-test-localhost.json")

	t.Run("full run writes a completed descriptor", func(t *testing.T) {
		f := newDeployFixture(t)
		f.cfg.Handoffs = []models.Invocation{
			{Target: "WorkerManager", Method: "transferOwnership", Args: []models.Arg{models.RefArg("Avatar")}},
		}

		result, err := f.useCase().Execute(ctx, DeployDAOParams{ConfigPath: "dao.yaml"})
		require.NoError(t, err)

		assert.Equal(t, defaultOut, result.OutPath)
		d := f.store.written[defaultOut]
		require.NotNil(t, d)
		assert.Equal(t, models.RunCompleted, d.Status)
		assert.Empty(t, d.Error)
		assert.NotEmpty(t, d.RunID)
		assert.Equal(t, uint64(31337), d.ChainID)
		assert.Equal(t, uint64(100), d.FromBlock)
		assert.Len(t, d.Components, 12)
		assert.Len(t, d.Proposals, 1)

		avatar, _ := result.State.Registry.Lookup("Avatar")
		assert.Equal(t, avatar.Hex(), d.Contracts.Avatar)
		assert.Equal(t, avatar.Hex(), d.Addresses["Avatar"])
		assert.NotEmpty(t, d.Contracts.Controller)
		assert.NotEmpty(t, d.Contracts.PermissionRegistry)
		assert.NotEmpty(t, d.Contracts.VotingMachine)
		assert.Equal(t, d.Contracts.Token, d.Contracts.Tokens["DXD"])
		assert.Contains(t, d.Contracts.Schemes, "MasterWalletScheme")
		assert.Contains(t, d.Contracts.Pipeline, "Submission")
		assert.Contains(t, d.Contracts.Utils, "WorkerManager")
		assert.Contains(t, d.Contracts.Utils, "Submission.DLL")

		registerScheme := f.gateway.callsTo("Controller.registerScheme")
		require.Len(t, registerScheme, 1)
		assert.Equal(t, [32]byte{0x42}, registerScheme[0].Args[1])

		// global deny rules come after the scheme rules
		perms := f.gateway.callsTo("PermissionRegistry.setPermission")
		require.Len(t, perms, 3)
		assert.Equal(t, [4]byte{0x2e, 0x4d, 0x4c, 0x9e}, perms[1].Args[3])

		assert.Len(t, f.gateway.callsTo("WorkerManager.transferOwnership"), 1)
		assert.Len(t, f.gateway.callsTo("DXDVotingMachine.vote"), 1)

		stages := f.sink.stages()
		assert.Equal(t, StagePlanCreated, stages[0])
		assert.Equal(t, StageRunCompleted, stages[len(stages)-1])
		f.prompter.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
	})

	t.Run("failed run still writes the partial descriptor", func(t *testing.T) {
		f := newDeployFixture(t)
		f.gateway.failWith("deploy:Controller")

		result, err := f.useCase().Execute(ctx, DeployDAOParams{ConfigPath: "dao.yaml", OutPath: "out.json"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrChainCall))

		d := f.store.written["out.json"]
		require.NotNil(t, d)
		assert.Same(t, result.Descriptor, d)
		assert.Equal(t, models.RunFailed, d.Status)
		assert.Contains(t, d.Error, "Controller")
		assert.Equal(t, []string{"Reputation", "DXD", "Avatar"}, componentNames(d))
		assert.Empty(t, d.Contracts.Controller)
		assert.Empty(t, f.gateway.callsTo("PermissionRegistry.setPermission"))
	})

	t.Run("handoffs skip imported targets", func(t *testing.T) {
		f := newDeployFixture(t)
		f.cfg.Imports = map[string]string{"WorkerManager": aliceAddr.Hex()}
		f.cfg.Handoffs = []models.Invocation{
			{Target: "WorkerManager", Method: "transferOwnership", Args: []models.Arg{models.RefArg("Avatar")}},
		}

		_, err := f.useCase().Execute(ctx, DeployDAOParams{ConfigPath: "dao.yaml"})
		require.NoError(t, err)
		assert.Empty(t, f.gateway.callsTo("WorkerManager.transferOwnership"))
		assert.NotEmpty(t, f.sink.infos)
	})

	t.Run("skip actions stops after handoffs", func(t *testing.T) {
		f := newDeployFixture(t)
		result, err := f.useCase().Execute(ctx, DeployDAOParams{ConfigPath: "dao.yaml", SkipActions: true})
		require.NoError(t, err)
		assert.Empty(t, f.gateway.callsTo("MasterWalletScheme.proposeCalls"))
		assert.Equal(t, 0, result.State.Proposals.Len())
	})

	t.Run("dry run only plans", func(t *testing.T) {
		f := newDeployFixture(t)
		result, err := f.useCase().Execute(ctx, DeployDAOParams{ConfigPath: "dao.yaml", DryRun: true})
		require.NoError(t, err)
		assert.NotNil(t, result.Plan)
		assert.Nil(t, result.Descriptor)
		assert.Empty(t, f.gateway.calls)
		assert.Empty(t, f.store.written)
	})

	t.Run("operator can decline on live networks", func(t *testing.T) {
		f := newDeployFixture(t)
		f.harness.cfg.NonInteractive = false
		f.harness.cfg.Network.Dev = false
		f.prompter.On("Confirm", mock.Anything, mock.MatchedBy(func(msg string) bool {
			return strings.Contains(msg, "localhost")
		})).Return(false, nil)

		_, err := f.useCase().Execute(ctx, DeployDAOParams{ConfigPath: "dao.yaml"})
		assert.ErrorIs(t, err, ErrCancelled)
		assert.Empty(t, f.gateway.calls)
		assert.Empty(t, f.store.written)
		f.prompter.AssertExpectations(t)
	})

	t.Run("chain id mismatch is rejected", func(t *testing.T) {
		f := newDeployFixture(t)
		f.harness.cfg.Network.ChainID = 1

		_, err := f.useCase().Execute(ctx, DeployDAOParams{ConfigPath: "dao.yaml"})
		assert.True(t, errors.Is(err, domain.ErrConfiguration))
		assert.Empty(t, f.gateway.calls)
	})

	t.Run("components without artifacts are rejected before sending", func(t *testing.T) {
		f := newDeployFixture(t)
		f.abis = withoutArtifact{staticABI: controllerABI, missing: "DxAvatar"}

		_, err := f.useCase().Execute(ctx, DeployDAOParams{ConfigPath: "dao.yaml"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrConfiguration))
		assert.Contains(t, err.Error(), "DxAvatar")
		assert.Empty(t, f.gateway.calls)
	})

	t.Run("imported components need no artifact", func(t *testing.T) {
		f := newDeployFixture(t)
		f.abis = withoutArtifact{staticABI: controllerABI, missing: "WorkerManager"}
		f.cfg.Imports = map[string]string{"WorkerManager": aliceAddr.Hex()}

		_, err := f.useCase().Execute(ctx, DeployDAOParams{ConfigPath: "dao.yaml", SkipActions: true})
		require.NoError(t, err)
		assert.Empty(t, f.gateway.callsTo("deploy:WorkerManager"))
	})

	t.Run("imports without code are rejected when verifying", func(t *testing.T) {
		f := newDeployFixture(t)
		f.cfg.Imports = map[string]string{"Avatar": aliceAddr.Hex()}

		_, err := f.useCase().Execute(ctx, DeployDAOParams{ConfigPath: "dao.yaml", VerifyImports: true})
		assert.True(t, errors.Is(err, domain.ErrConfiguration))
		assert.Empty(t, f.gateway.keys("deploy"))
	})

	t.Run("resume imports what an earlier run recorded", func(t *testing.T) {
		f := newDeployFixture(t)
		f.store.written["previous.json"] = &models.NetworkDescriptor{
			Components: []models.ComponentRecord{
				{Name: "Reputation", Address: aliceAddr.Hex()},
				{Name: "DXD", Address: deployerAddr.Hex()},
			},
		}

		result, err := f.useCase().Execute(ctx, DeployDAOParams{ConfigPath: "dao.yaml", ResumePath: "previous.json", SkipActions: true})
		require.NoError(t, err)
		assert.Empty(t, f.gateway.callsTo("deploy:Reputation"))
		assert.Empty(t, f.gateway.callsTo("deploy:DXD"))
		assert.Empty(t, f.gateway.callsTo("Reputation.mintMultiple"))

		rep, _ := result.State.Registry.Lookup("Reputation")
		assert.Equal(t, aliceAddr, rep)
	})
}

func componentNames(d *models.NetworkDescriptor) []string {
	out := make([]string, len(d.Components))
	for i, c := range d.Components {
		out[i] = c.Name
	}
	return out
}
