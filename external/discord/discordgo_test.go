package discord

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestSession(t *testing.T, rt roundTripFunc) *discordgo.Session {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if rt != nil {
		s.Client = &http.Client{Transport: rt}
	}
	return s
}

func TestFetchRole_UsesStateCacheFirst(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected REST call: %s %s", req.Method, req.URL.String())
		return nil, nil
	})
	if err := s.State.GuildAdd(&discordgo.Guild{
		ID: "guild-1",
		Roles: []*discordgo.Role{
			{ID: "role-1", Name: "bashers"},
		},
	}); err != nil {
		t.Fatalf("failed to add guild to state: %v", err)
	}

	c := &Client{session: s}
	role, err := c.FetchRole("guild-1", "role-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role.Name != "bashers" {
		t.Fatalf("expected bashers, got %q", role.Name)
	}
}

func TestFetchRole_FallsBackToRESTWhenStateIsCold(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/guilds/guild-1/roles") {
			t.Fatalf("unexpected request path: %s", req.URL.Path)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body: io.NopCloser(strings.NewReader(
				`[{"id":"role-rest","name":"bashers","color":0,"hoist":false,"position":1,"permissions":"0","managed":false,"mentionable":true}]`,
			)),
			Header: make(http.Header),
		}, nil
	})

	c := &Client{session: s}
	role, err := c.FetchRole("guild-1", "role-rest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role.ID != "role-rest" {
		t.Fatalf("expected role-rest, got %q", role.ID)
	}
}

func TestFindRoleByName_IsCaseInsensitive(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected REST call: %s %s", req.Method, req.URL.String())
		return nil, nil
	})
	if err := s.State.GuildAdd(&discordgo.Guild{
		ID: "guild-1",
		Roles: []*discordgo.Role{
			{ID: "role-1", Name: "Bashers"},
		},
	}); err != nil {
		t.Fatalf("failed to add guild to state: %v", err)
	}

	c := &Client{session: s}
	role, err := c.FindRoleByName("guild-1", "bashers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role.ID != "role-1" {
		t.Fatalf("expected role-1, got %q", role.ID)
	}
}
