package gotauth

import (
	"context"
)

// LocalLogin checks an email and password.  A missing user, a wrong password
// and an account without a local password all fail with the same
// Unauthorized error.
func (a *Authenticator) LocalLogin(ctx context.Context, email, password string) (Projection, error) {
	proj, err := a.localLogin(ctx, email, password)
	a.Metrics.observeFlow(flowLogin, err)
	return proj, err
}

func (a *Authenticator) localLogin(ctx context.Context, email, password string) (Projection, error) {
	user, err := a.FindByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return Projection{}, errInvalidCredentials()
		}
		return Projection{}, err
	}
	if !user.HasPassword() {
		return Projection{}, errInvalidCredentials()
	}
	if err := a.Hasher.Verify(password, user.PasswordHash); err != nil {
		if KindOf(err) == KindUnauthorized {
			return Projection{}, errInvalidCredentials()
		}
		return Projection{}, err
	}
	return user.Projection(), nil
}

func errInvalidCredentials() *AuthError {
	return &AuthError{Kind: KindUnauthorized, Message: MsgInvalidCredentials}
}

// LocalSignup creates a user with a password of their choosing.  The password
// is also sent in the welcome email.
func (a *Authenticator) LocalSignup(ctx context.Context, p Profile) (Projection, error) {
	proj, err := a.localSignup(ctx, p)
	a.Metrics.observeFlow(flowSignup, err)
	return proj, err
}

func (a *Authenticator) localSignup(ctx context.Context, p Profile) (Projection, error) {
	_, err := a.FindByEmail(ctx, p.Email)
	if err == nil {
		return Projection{}, &AuthError{Kind: KindConflict, Message: MsgEmailTaken, Field: "email"}
	}
	if !IsNotFound(err) {
		return Projection{}, err
	}

	user, err := a.newUser(p)
	if err != nil {
		return Projection{}, err
	}
	if err := a.Store.Create(ctx, user); err != nil {
		return Projection{}, errInfrastructure("failed to create user", err)
	}
	a.Logger.Info("user signed up", "user_id", user.ID)
	a.sendMail(ctx, mailNewAccount, user.Email, p.Password)
	return user.Projection(), nil
}

// PasswordRecovery replaces the password of the user with the given email by
// a generated one and mails it to them.  Unknown emails fail with NotFound.
func (a *Authenticator) PasswordRecovery(ctx context.Context, email string) error {
	err := a.passwordRecovery(ctx, email)
	a.Metrics.observeFlow(flowRecovery, err)
	return err
}

func (a *Authenticator) passwordRecovery(ctx context.Context, email string) error {
	user, err := a.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	password, err := GenerateRandomPassword()
	if err != nil {
		return err
	}
	hash, err := a.Hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := a.Store.Update(ctx, user.ID, UserPatch{PasswordHash: &hash}); err != nil {
		return storeWriteError(err, "failed to update password")
	}
	a.Logger.Info("password reset", "user_id", user.ID)
	a.sendMail(ctx, mailRecovery, user.Email, password)
	return nil
}

// GetUser returns the full record of a user.
func (a *Authenticator) GetUser(ctx context.Context, id int64) (User, error) {
	return a.FindByID(ctx, id)
}

// ProfileUpdate lists the editable profile fields.  The password only changes
// when both OldPassword and NewPassword are set.
type ProfileUpdate struct {
	Name        string
	Alert       *bool
	OldPassword string
	NewPassword string
}

// UpdateProfile changes the name, alert flag and optionally the password of a
// user.  A wrong OldPassword fails with Unauthorized and changes nothing.
func (a *Authenticator) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) error {
	user, err := a.FindByID(ctx, id)
	if err != nil {
		return err
	}

	name := upd.Name
	patch := UserPatch{Name: &name, Alert: upd.Alert}
	if upd.OldPassword != "" && upd.NewPassword != "" {
		if !user.HasPassword() {
			return NewAuthError(KindUnauthorized, MsgInvalidPassword)
		}
		if err := a.Hasher.Verify(upd.OldPassword, user.PasswordHash); err != nil {
			return err
		}
		hash, err := a.Hasher.Hash(upd.NewPassword)
		if err != nil {
			return err
		}
		patch.PasswordHash = &hash
	}

	if err := a.Store.Update(ctx, id, patch); err != nil {
		return storeWriteError(err, "failed to update user")
	}
	return nil
}

// DeleteUser removes a user.  Ownership is checked by the caller.
func (a *Authenticator) DeleteUser(ctx context.Context, id int64) error {
	if err := a.Store.Delete(ctx, id); err != nil {
		return storeWriteError(err, "failed to delete user")
	}
	a.Logger.Info("user deleted", "user_id", id)
	return nil
}
