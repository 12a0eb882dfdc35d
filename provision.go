package gotauth

import (
	"context"
	"time"
)

// Profile holds the fields a user supplies at signup.
type Profile struct {
	Name      string
	Email     string
	Password  string
	Gender    string
	Birthdate *time.Time
	Alert     bool
}

// newUser builds an active user record with a fresh id and the hash of
// password.  Nothing is persisted.
func (a *Authenticator) newUser(p Profile) (User, error) {
	hash, err := a.Hasher.Hash(p.Password)
	if err != nil {
		return User{}, err
	}
	gender := p.Gender
	if gender == "" {
		gender = DefaultGender
	}
	return User{
		ID:           a.IDs.NextID(),
		Name:         p.Name,
		Gender:       gender,
		Birthdate:    p.Birthdate,
		Email:        p.Email,
		PasswordHash: hash,
		Alert:        p.Alert,
		Active:       true,
		CreatedOn:    a.Now(),
	}, nil
}

// provision creates a user for a provider assertion that matched nobody.  The
// generated password is emailed once and then only its hash is kept.
//
// Two concurrent provisions for the same unseen assertion can both get here
// and create duplicate users.  Nothing prevents that.
func (a *Authenticator) provision(ctx context.Context, provider Provider, as Assertion) (User, error) {
	password, err := GenerateRandomPassword()
	if err != nil {
		return User{}, err
	}
	user, err := a.newUser(Profile{
		Name:      as.DisplayName,
		Email:     as.Email,
		Password:  password,
		Birthdate: a.OAuthBirthdate(a.Now()),
	})
	if err != nil {
		return User{}, err
	}
	user = user.WithProviderID(provider, as.ProviderID)

	if err := a.Store.Create(ctx, user); err != nil {
		return User{}, errInfrastructure("failed to create user", err)
	}
	a.Logger.Info("provisioned user", "provider", string(provider), "user_id", user.ID)
	a.sendMail(ctx, mailNewAccount, user.Email, password)
	return user, nil
}
