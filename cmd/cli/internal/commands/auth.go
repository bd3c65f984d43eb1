package commands

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/reflections/internal/tokenstore"
)

// SignupCmd registers a new account and signs it in.
type SignupCmd struct {
	Username  string `help:"Username (at least 3 characters)" required:""`
	FirstName string `help:"First name" required:""`
	LastName  string `help:"Last name" required:""`
	Email     string `help:"Account email" required:""`
	Password  string `help:"Account password (at least 6 characters)" required:"" env:"REFLECTIONS_PASSWORD"`
}

func (c *SignupCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, false)
	if err != nil {
		return err
	}

	return a.report(a.actions.Signup(ctx, url.Values{
		"username":  {c.Username},
		"firstName": {c.FirstName},
		"lastName":  {c.LastName},
		"email":     {c.Email},
		"password":  {c.Password},
	}))
}

// LoginCmd signs in with email and password.
type LoginCmd struct {
	Email    string `help:"Account email" required:"" env:"REFLECTIONS_EMAIL"`
	Password string `help:"Account password" required:"" env:"REFLECTIONS_PASSWORD"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, false)
	if err != nil {
		return err
	}

	res := a.actions.Login(ctx, url.Values{"email": {c.Email}, "password": {c.Password}})
	if err := a.report(res); err != nil {
		return err
	}

	if user := a.sessions.Current().User; user != nil {
		fmt.Fprintf(a.out, "Signed in as %s (%s)\n", user.DisplayName(), user.Email)
	}
	return nil
}

// LogoutCmd removes the stored session and the read cache.
type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	if err := a.report(a.actions.Logout(ctx)); err != nil {
		return err
	}

	// only the default cache location is owned by the CLI
	if dir := globals.cacheDir(); globals.CacheDir == "" && dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to remove read cache")
		}
	}
	return nil
}

// WhoamiCmd confirms the stored session with the API and shows the signed in user.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, true)
	if err != nil {
		return err
	}

	s := a.sessions.Current()
	if !s.Authenticated() {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}

	fmt.Fprintf(a.out, "User:     %s\n", s.User.DisplayName())
	fmt.Fprintf(a.out, "Username: %s\n", s.User.Username)
	fmt.Fprintf(a.out, "Email:    %s\n", s.User.Email)
	fmt.Fprintf(a.out, "Role:     %s\n", s.User.Role)
	fmt.Fprintf(a.out, "Token:    %s\n", tokenstore.Fingerprint(s.AccessToken))

	switch {
	case s.Expiry.IsZero():
		fmt.Fprintln(a.out, "Expires:  unknown")
	case time.Now().After(s.Expiry):
		fmt.Fprintf(a.out, "Expires:  %s (expired, refreshed on next request)\n", s.Expiry.Local().Format(time.RFC1123))
	default:
		fmt.Fprintf(a.out, "Expires:  %s (in %s)\n", s.Expiry.Local().Format(time.RFC1123), time.Until(s.Expiry).Round(time.Second))
	}

	return nil
}

// ProfileCmd manages the signed in user's profile.
type ProfileCmd struct {
	Update ProfileUpdateCmd `cmd:"" help:"Update profile fields"`
}

// ProfileUpdateCmd changes the given profile fields; empty fields are left as they are.
type ProfileUpdateCmd struct {
	FirstName string `help:"First name"`
	LastName  string `help:"Last name"`
	Username  string `help:"Username"`
	AvatarURL string `name:"avatar-url" help:"Avatar image URL"`
}

func (c *ProfileUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, false)
	if err != nil {
		return err
	}

	return a.report(a.actions.UpdateProfile(ctx, url.Values{
		"firstName": {c.FirstName},
		"lastName":  {c.LastName},
		"username":  {c.Username},
		"avatarUrl": {c.AvatarURL},
	}))
}
