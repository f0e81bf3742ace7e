package endpoints

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jcpope/homehub/proto"
	"github.com/jcpope/homehub/server"
	"github.com/jcpope/homehub/store"
)

// profileSummary is the wire shape for profile listings; passcode hashes
// never leave the server.
type profileSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	LastLogin  time.Time `json:"lastLogin"`
	HasSpotify bool      `json:"hasSpotify"`
}

func summarize(p store.Profile) profileSummary {
	return profileSummary{
		ID:         p.ID,
		Name:       p.Name,
		CreatedAt:  p.CreatedAt,
		LastLogin:  p.LastLogin,
		HasSpotify: p.SpotifyProfileID != "",
	}
}

func validPasscode(passcode string) bool {
	return len(passcode) >= 4 && len(passcode) <= 6
}

func profileGetAll(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		profiles := st.Profiles()
		summaries := make([]profileSummary, 0, len(profiles))
		for _, p := range profiles {
			summaries = append(summaries, summarize(p))
		}
		respond(c, "Profile/GetAll", msg.RequestID, map[string]any{
			"profiles": summaries,
			"count":    len(summaries),
		})
	}
}

func profileCreate(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		name := strings.TrimSpace(proto.String(msg.Data, "name"))
		passcode := proto.String(msg.Data, "passcode")

		if name == "" {
			respondError(c, "Profile/Create", msg.RequestID, "Name is required")
			return
		}
		if !validPasscode(passcode) {
			respondError(c, "Profile/Create", msg.RequestID, "Passcode must be 4-6 digits")
			return
		}

		// Hash before touching the store; bcrypt is slow and must not
		// widen the check-and-insert window.
		hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, "Profile/Create", msg.RequestID, "Failed to create profile")
			return
		}

		profile := store.NewProfile(name, hash)
		if err := st.CreateProfile(profile); err != nil {
			respondError(c, "Profile/Create", msg.RequestID, "A profile with this name already exists")
			return
		}
		slog.Info("Profile created", "name", name, "profileId", profile.ID)

		respond(c, "Profile/Create", msg.RequestID, map[string]any{
			"success": true,
			"profile": summarize(profile),
		})
	}
}

func profileLogin(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		profileID := proto.String(msg.Data, "profileId")
		passcode := proto.String(msg.Data, "passcode")

		profile, ok := st.Profile(profileID)
		if !ok {
			respondError(c, "Profile/Login", msg.RequestID, "Profile not found")
			return
		}

		if bcrypt.CompareHashAndPassword(profile.PasscodeHash, []byte(passcode)) != nil {
			slog.Info("Failed profile login", "name", profile.Name)
			respondError(c, "Profile/Login", msg.RequestID, "Incorrect passcode")
			return
		}

		_ = st.UpdateProfile(profileID, func(p *store.Profile) error {
			p.LastLogin = time.Now().UTC()
			return nil
		})
		profile, _ = st.Profile(profileID)
		slog.Info("Profile login", "name", profile.Name)

		respond(c, "Profile/Login", msg.RequestID, map[string]any{
			"success": true,
			"profile": map[string]any{
				"id":               profile.ID,
				"name":             profile.Name,
				"createdAt":        profile.CreatedAt,
				"lastLogin":        profile.LastLogin,
				"spotifyProfileId": profile.SpotifyProfileID,
				"settings":         profile.Settings,
			},
		})
	}
}

func profileUpdate(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		profileID := proto.String(msg.Data, "profileId")
		newName := strings.TrimSpace(proto.String(msg.Data, "name"))
		newPasscode := proto.String(msg.Data, "passcode")

		if _, ok := st.Profile(profileID); !ok {
			respondError(c, "Profile/Update", msg.RequestID, "Profile not found")
			return
		}

		var hash []byte
		if newPasscode != "" {
			if !validPasscode(newPasscode) {
				respondError(c, "Profile/Update", msg.RequestID, "Passcode must be 4-6 digits")
				return
			}
			var err error
			hash, err = bcrypt.GenerateFromPassword([]byte(newPasscode), bcrypt.DefaultCost)
			if err != nil {
				respondError(c, "Profile/Update", msg.RequestID, "Failed to update profile")
				return
			}
		}

		err := st.UpdateProfile(profileID, func(p *store.Profile) error {
			if newName != "" {
				p.Name = newName
			}
			if hash != nil {
				p.PasscodeHash = hash
			}
			return nil
		})
		if errors.Is(err, store.ErrDuplicateName) {
			respondError(c, "Profile/Update", msg.RequestID, "A profile with this name already exists")
			return
		}
		if err != nil {
			respondError(c, "Profile/Update", msg.RequestID, "Profile not found")
			return
		}

		profile, _ := st.Profile(profileID)
		slog.Info("Profile updated", "name", profile.Name)

		respond(c, "Profile/Update", msg.RequestID, map[string]any{
			"success": true,
			"profile": summarize(profile),
		})
	}
}

func profileDelete(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		profileID := proto.String(msg.Data, "profileId")

		profile, ok := st.DeleteProfile(profileID)
		if !ok {
			respondError(c, "Profile/Delete", msg.RequestID, "Profile not found")
			return
		}

		slog.Info("Profile deleted", "name", profile.Name)
		respond(c, "Profile/Delete", msg.RequestID, proto.Result{Success: true})
	}
}

func profileLinkSpotify(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		profileID := proto.String(msg.Data, "profileId")
		spotifyID := proto.String(msg.Data, "spotifyProfileId")

		if _, ok := st.Profile(profileID); !ok {
			respondError(c, "Profile/LinkSpotify", msg.RequestID, "Profile not found")
			return
		}

		// Empty spotifyProfileId unlinks; otherwise the target must exist.
		if spotifyID != "" {
			if _, ok := st.SpotifyProfile(spotifyID); !ok {
				respondError(c, "Profile/LinkSpotify", msg.RequestID, "Spotify profile not found")
				return
			}
		}

		_ = st.UpdateProfile(profileID, func(p *store.Profile) error {
			p.SpotifyProfileID = spotifyID
			return nil
		})

		action := "Linked"
		if spotifyID == "" {
			action = "Unlinked"
		}
		slog.Info("Spotify link changed", "action", action, "profileId", profileID)

		respond(c, "Profile/LinkSpotify", msg.RequestID, map[string]any{
			"success":          true,
			"spotifyProfileId": spotifyID,
		})
	}
}
