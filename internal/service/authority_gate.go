package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/barangay-api/internal/models"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
)

const defaultSignerName = "Punong Barangay"

// SignerLookup answers who the current signing authority is. Every call goes
// to the store, so a signature uploaded a moment ago is seen immediately.
type SignerLookup interface {
	CurrentAuthority(ctx context.Context) (*models.Official, error)
	HasSignature(ctx context.Context, officialID string) (bool, string, error)
	Profile(ctx context.Context) (*models.BarangayProfile, error)
}

// Signer is the name and signature image printed on issued certificates.
type Signer struct {
	OfficialID   string
	Name         string
	SignatureRef string
	FromProfile  bool
}

// AuthorityGate decides who may see the approval queue and act on it.
type AuthorityGate struct {
	signers SignerLookup
	logger  *zap.Logger
}

// NewAuthorityGate constructs the gate.
func NewAuthorityGate(signers SignerLookup, logger *zap.Logger) *AuthorityGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthorityGate{signers: signers, logger: logger}
}

// CanViewQueue reports whether the actor may list the approval queue.
func (g *AuthorityGate) CanViewQueue(actor *models.JWTClaims) bool {
	return actor != nil && actor.Role.IsAuthority()
}

// CanApprove checks the actor's role and, for approvals, that a signature is
// on file for the current authority or the barangay profile.
func (g *AuthorityGate) CanApprove(ctx context.Context, actor *models.JWTClaims, action models.WorkflowAction) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.Role.IsAuthority() {
		return appErrors.Clone(appErrors.ErrForbidden, "only the barangay captain or an administrator may "+strings.ReplaceAll(string(action), "_", " "))
	}
	if action != models.ActionApprove {
		return nil
	}
	signer, err := g.ResolveSigner(ctx)
	if err != nil {
		return err
	}
	if signer.SignatureRef == "" {
		g.logger.Info("approval blocked: no signature on file", zap.String("actor", actor.UserID))
		return appErrors.ErrMissingSignature
	}
	return nil
}

// ResolveSigner returns the current captain with their signature, falling back
// to the signer configured on the barangay profile. SignatureRef is empty when
// neither has one on file.
func (g *AuthorityGate) ResolveSigner(ctx context.Context) (*Signer, error) {
	authority, err := g.signers.CurrentAuthority(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve signing authority")
	}

	signer := &Signer{Name: defaultSignerName}
	if authority != nil {
		signer.OfficialID = authority.ID
		signer.Name = authority.FullName
		ok, ref, err := g.signers.HasSignature(ctx, authority.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check signature")
		}
		if ok {
			signer.SignatureRef = ref
			return signer, nil
		}
	}

	profile, err := g.signers.Profile(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load barangay profile")
	}
	if profile == nil {
		return signer, nil
	}
	if authority == nil && profile.CaptainName != nil && strings.TrimSpace(*profile.CaptainName) != "" {
		signer.Name = strings.TrimSpace(*profile.CaptainName)
	}
	if profile.CaptainSignaturePath != nil && strings.TrimSpace(*profile.CaptainSignaturePath) != "" {
		signer.SignatureRef = strings.TrimSpace(*profile.CaptainSignaturePath)
		signer.FromProfile = true
	}
	return signer, nil
}
