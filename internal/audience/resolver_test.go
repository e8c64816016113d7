package audience

import (
	"errors"
	"testing"

	"github.com/luciverlabs/luciver/internal/discord"
)

type mockRoleDirectory struct {
	roles      map[string]discord.Role
	fetchCalls int
	err        error
}

func (m *mockRoleDirectory) FetchRole(_, roleID string) (discord.Role, error) {
	m.fetchCalls++
	if m.err != nil {
		return discord.Role{}, m.err
	}
	role, ok := m.roles[roleID]
	if !ok {
		return discord.Role{}, errors.New("unknown role")
	}
	return role, nil
}

func TestResolve_Me(t *testing.T) {
	r := NewResolver(&mockRoleDirectory{})
	desc, err := r.Resolve(Request{Token: "me", RequesterID: "u1", GuildID: "g1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Kind != KindSelf || desc.SubjectID != "u1" {
		t.Errorf("got kind=%v subject=%q, want self/u1", desc.Kind, desc.SubjectID)
	}
	if desc.DisplayLabel != "<@u1>" {
		t.Errorf("display label = %q", desc.DisplayLabel)
	}
	if !desc.IsSingleUser() {
		t.Error("self audience must be single-user")
	}
}

func TestResolve_MeOutsideGuildKeepsEmptyScope(t *testing.T) {
	r := NewResolver(&mockRoleDirectory{})
	desc, err := r.Resolve(Request{Token: "me", RequesterID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.GuildID != "" {
		t.Errorf("guild id = %q, want empty", desc.GuildID)
	}
}

func TestResolve_Everyone(t *testing.T) {
	r := NewResolver(&mockRoleDirectory{})
	for _, token := range []string{"@everyone", "everyone", "EVERYONE"} {
		desc, err := r.Resolve(Request{Token: token, RequesterID: "u1", GuildID: "g1"})
		if err != nil {
			t.Fatalf("token %q: unexpected error: %v", token, err)
		}
		if desc.Kind != KindBroadcast || desc.SubjectID != "g1" || desc.GuildID != "g1" {
			t.Errorf("token %q: got %+v", token, desc)
		}
		if desc.IsSingleUser() {
			t.Errorf("token %q: broadcast must not be single-user", token)
		}
	}
}

func TestResolve_EveryoneOutsideGuildFails(t *testing.T) {
	r := NewResolver(&mockRoleDirectory{})
	_, err := r.Resolve(Request{Token: "everyone", RequesterID: "u1"})
	if !errors.Is(err, ErrBroadcastNeedsGuild) {
		t.Fatalf("error = %v, want ErrBroadcastNeedsGuild", err)
	}
}

func TestResolve_UserMention(t *testing.T) {
	r := NewResolver(&mockRoleDirectory{})
	desc, err := r.Resolve(Request{Token: "<@42>", MentionedUserID: "42", RequesterID: "u1", GuildID: "g1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Kind != KindUser || desc.SubjectID != "42" {
		t.Errorf("got %+v", desc)
	}
}

func TestResolve_RoleMention(t *testing.T) {
	dir := &mockRoleDirectory{roles: map[string]discord.Role{"7": {ID: "7", Name: "bashers"}}}
	r := NewResolver(dir)
	desc, err := r.Resolve(Request{Token: "<@&7>", MentionedRoleID: "7", RequesterID: "u1", GuildID: "g1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Kind != KindRole || desc.SubjectID != "7" || desc.GuildID != "g1" {
		t.Errorf("got %+v", desc)
	}
	if desc.DisplayLabel != "bashers role" {
		t.Errorf("display label = %q", desc.DisplayLabel)
	}
	if dir.fetchCalls != 1 {
		t.Errorf("fetch calls = %d, want 1", dir.fetchCalls)
	}
}

func TestResolve_RoleOutsideGuildFails(t *testing.T) {
	r := NewResolver(&mockRoleDirectory{})
	_, err := r.Resolve(Request{Token: "<@&7>", MentionedRoleID: "7", RequesterID: "u1"})
	if !errors.Is(err, ErrRoleNeedsGuild) {
		t.Fatalf("error = %v, want ErrRoleNeedsGuild", err)
	}
}

func TestResolve_UnknownRoleFails(t *testing.T) {
	r := NewResolver(&mockRoleDirectory{})
	_, err := r.Resolve(Request{Token: "<@&7>", MentionedRoleID: "7", RequesterID: "u1", GuildID: "g1"})
	if !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("error = %v, want ErrRoleNotFound", err)
	}
}

func TestResolve_UnknownTokenFails(t *testing.T) {
	r := NewResolver(&mockRoleDirectory{})
	_, err := r.Resolve(Request{Token: "somebody", RequesterID: "u1", GuildID: "g1"})
	if !errors.Is(err, ErrCannotResolve) {
		t.Fatalf("error = %v, want ErrCannotResolve", err)
	}
}
