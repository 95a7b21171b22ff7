package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

const steamSource = "steam"

// FamilyStats tallies the shared library of a Steam family by owner.
type FamilyStats struct {
	// Sum counts every app an owner holds.
	Sum map[string]int
	// Unique counts apps the owner is the only holder of.
	Unique map[string]int
	Apps   int
}

// UniqueTotal is the number of apps with exactly one owner.
func (f *FamilyStats) UniqueTotal() int {
	total := 0
	for _, n := range f.Unique {
		total += n
	}
	return total
}

// Report renders the stats for the member who asked for them, owners ordered
// by app count.
func (f *FamilyStats) Report(memberID string) string {
	owners := make([]string, 0, len(f.Sum))
	for owner := range f.Sum {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool {
		if f.Sum[owners[i]] != f.Sum[owners[j]] {
			return f.Sum[owners[i]] > f.Sum[owners[j]]
		}
		return owners[i] < owners[j]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Here are stats about your steam family <@%s>:\n\n", memberID)
	for _, owner := range owners {
		fmt.Fprintf(&b, "%s: %d (%d unique)\n", owner, f.Sum[owner], f.Unique[owner])
	}
	fmt.Fprintf(&b, "Total: %d Games\nGames with only one owner: %d", f.Apps, f.UniqueTotal())
	return b.String()
}

// SteamService queries the Steam Web API family endpoints.
type SteamService struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// NewSteamService builds a client against baseURL.
func NewSteamService(baseURL string, timeout time.Duration, logger *zap.Logger) *SteamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SteamService{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// steamID decodes ids Steam sends either as strings or as numbers.
type steamID string

func (id *steamID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	*id = steamID(strings.Trim(string(data), `"`))
	return nil
}

type familyGroupResponse struct {
	Response *struct {
		FamilyGroupID steamID `json:"family_groupid"`
	} `json:"response"`
}

type sharedApp struct {
	AppID         int64     `json:"appid"`
	OwnerSteamIDs []steamID `json:"owner_steamids"`
	ExcludeReason int       `json:"exclude_reason"`
}

type sharedAppsResponse struct {
	Response *struct {
		Apps []sharedApp `json:"apps"`
	} `json:"response"`
}

type playerSummariesResponse struct {
	Response *struct {
		Players []struct {
			SteamID     string `json:"steamid"`
			PersonaName string `json:"personaname"`
		} `json:"players"`
	} `json:"response"`
}

// FamilyStats resolves the caller's family group and tallies its shared apps.
// With a web API key, owner ids are replaced by persona names.
func (s *SteamService) FamilyStats(ctx context.Context, accessToken, webKey string) (*FamilyStats, error) {
	var group familyGroupResponse
	if err := s.get(ctx, "/IFamilyGroupsService/GetFamilyGroupForUser/v1/", url.Values{
		"access_token": {accessToken},
	}, &group); err != nil {
		return nil, err
	}
	if group.Response == nil || group.Response.FamilyGroupID == "" {
		return nil, apperrors.NewMalformedResponse(steamSource, map[string]any{"endpoint": "GetFamilyGroupForUser"})
	}

	var shared sharedAppsResponse
	if err := s.get(ctx, "/IFamilyGroupsService/GetSharedLibraryApps/v1/", url.Values{
		"access_token":   {accessToken},
		"include_own":    {"true"},
		"family_groupid": {string(group.Response.FamilyGroupID)},
	}, &shared); err != nil {
		return nil, err
	}
	if shared.Response == nil || shared.Response.Apps == nil {
		return nil, apperrors.NewMalformedResponse(steamSource, map[string]any{"endpoint": "GetSharedLibraryApps"})
	}

	stats := tallyOwners(shared.Response.Apps)
	if webKey != "" && len(stats.Sum) > 0 {
		names, err := s.personaNames(ctx, webKey, stats.Sum)
		if err != nil {
			s.logger.Warn("steam persona names unavailable", zap.Error(err))
		} else {
			stats.Sum = renameOwners(stats.Sum, names)
			stats.Unique = renameOwners(stats.Unique, names)
		}
	}
	return stats, nil
}

func tallyOwners(apps []sharedApp) *FamilyStats {
	stats := &FamilyStats{Sum: map[string]int{}, Unique: map[string]int{}}
	for _, app := range apps {
		if app.ExcludeReason != 0 {
			continue
		}
		stats.Apps++
		for _, owner := range app.OwnerSteamIDs {
			stats.Sum[string(owner)]++
		}
		if len(app.OwnerSteamIDs) == 1 {
			stats.Unique[string(app.OwnerSteamIDs[0])]++
		}
	}
	return stats
}

func (s *SteamService) personaNames(ctx context.Context, webKey string, owners map[string]int) (map[string]string, error) {
	ids := make([]string, 0, len(owners))
	for id := range owners {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var summaries playerSummariesResponse
	if err := s.get(ctx, "/ISteamUser/GetPlayerSummaries/v2/", url.Values{
		"key":      {webKey},
		"steamids": {strings.Join(ids, ",")},
	}, &summaries); err != nil {
		return nil, err
	}
	if summaries.Response == nil {
		return nil, apperrors.NewMalformedResponse(steamSource, map[string]any{"endpoint": "GetPlayerSummaries"})
	}
	names := make(map[string]string, len(summaries.Response.Players))
	for _, player := range summaries.Response.Players {
		if player.PersonaName != "" {
			names[player.SteamID] = player.PersonaName
		}
	}
	return names, nil
}

func renameOwners(counts map[string]int, names map[string]string) map[string]int {
	out := make(map[string]int, len(counts))
	for id, n := range counts {
		key := id
		if name, ok := names[id]; ok {
			key = name
		}
		out[key] += n
	}
	return out
}

func (s *SteamService) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("steam %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("steam %s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("steam %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewMalformedResponse(steamSource, map[string]any{"endpoint": path, "error": err.Error()})
	}
	return nil
}
