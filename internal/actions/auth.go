package actions

import (
	"context"
	"net/url"

	"github.com/wolfeidau/reflections/internal/models"
)

var authMessages = messages{
	fallback:    "An unknown API error occurred.",
	unreachable: "Could not connect to the authentication service. Please try again later.",
}

// Signup validates the signup form and registers the account. On success the session
// is signed in and Data holds the new profile.
func (a *Actions) Signup(ctx context.Context, form url.Values) Result {
	var in signupForm
	if msg, ok := bind(form, &in); !ok {
		return failure(ctx, "signup", msg)
	}

	msg, err := a.sessions.Signup(ctx, models.SignupRequest{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Username:  in.Username,
		Password:  in.Password,
	})
	if err != nil {
		return apiFailure(ctx, "signup", err, authMessages)
	}

	if msg == "" {
		msg = "Account created!"
	}
	return success(ctx, "signup", msg, a.sessions.Current().User)
}

// Login validates the login form and signs in. Data holds the profile.
func (a *Actions) Login(ctx context.Context, form url.Values) Result {
	var in loginForm
	if msg, ok := bind(form, &in); !ok {
		return failure(ctx, "login", msg)
	}

	if _, err := a.sessions.Login(ctx, models.LoginRequest{Email: in.Email, Password: in.Password}); err != nil {
		return apiFailure(ctx, "login", err, messages{
			fallback:    "Invalid credentials.",
			unreachable: authMessages.unreachable,
		})
	}

	return success(ctx, "login", "Login successful!", a.sessions.Current().User)
}

// Logout signs the session out.
func (a *Actions) Logout(ctx context.Context) Result {
	if err := a.sessions.Logout(ctx); err != nil {
		return failure(ctx, "logout", "Failed to sign out.")
	}
	return success(ctx, "logout", "Signed out.", nil)
}

// UpdateProfile updates the signed in user's profile from the non-empty form fields.
func (a *Actions) UpdateProfile(ctx context.Context, form url.Values) Result {
	user, ok := a.signedIn()
	if !ok {
		return failure(ctx, "update_profile", notSignedInMessage)
	}

	var in profileForm
	if msg, ok := bind(form, &in); !ok {
		return failure(ctx, "update_profile", msg)
	}

	res, err := a.api.UpdateProfile(ctx, models.ProfileUpdate{
		ID:        user.ID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Username:  in.Username,
		AvatarURL: in.AvatarURL,
	})
	if err != nil {
		return apiFailure(ctx, "update_profile", err, messages{
			fallback:    "Failed to update profile.",
			unreachable: "Could not connect to the API service.",
		})
	}

	updated := &res.Data
	if !updated.Valid() {
		// the API did not echo the profile, apply the change locally
		merged := *user
		merged.FirstName = orDefault(in.FirstName, user.FirstName)
		merged.LastName = orDefault(in.LastName, user.LastName)
		merged.Username = orDefault(in.Username, user.Username)
		merged.AvatarURL = orDefault(in.AvatarURL, user.AvatarURL)
		updated = &merged
	}

	if err := a.sessions.SetUser(ctx, updated); err != nil {
		return failure(ctx, "update_profile", "Profile updated but the session could not be saved.")
	}

	return success(ctx, "update_profile", orDefault(res.Message, "Profile updated."), updated)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
