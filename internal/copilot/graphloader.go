package copilot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/officepulse/officepulse/internal/graph"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FileInfo is resolved document metadata.
type FileInfo struct {
	Name      string
	Extension string
	URL       string
	SiteURL   string
}

// MeetingInfo is resolved online meeting metadata.
type MeetingInfo struct {
	Subject string
	Created time.Time
}

// MetadataLoader resolves copilot context references. Lookup misses (content
// deleted, no access) return (nil, nil), not errors.
type MetadataLoader interface {
	GetFileInfo(ctx context.Context, contextID, eventUPN string) (*FileInfo, error)
	GetMeetingInfo(ctx context.Context, meetingID, userGuid string) (*MeetingInfo, error)
	GetUserIDFromUpn(ctx context.Context, upn string) (string, error)
}

type driveRef struct {
	ID string `json:"id"`
}

type graphSite struct {
	ID string `json:"id"`
}

type graphDriveItem struct {
	Name   string `json:"name"`
	WebURL string `json:"webUrl"`
}

type graphMeeting struct {
	Subject          string    `json:"subject"`
	CreationDateTime time.Time `json:"creationDateTime"`
}

type graphDirUser struct {
	ID string `json:"id"`
}

// GraphLoader is the Graph-backed MetadataLoader. Site drives and user guids
// are cached for the process lifetime; concurrent first lookups for the same
// key collapse into one request.
type GraphLoader struct {
	client *graph.Client
	log    *zap.Logger

	siteGroup singleflight.Group
	sites     sync.Map // site URL -> drive id

	userGroup singleflight.Group
	users     sync.Map // upn -> directory guid
}

func NewGraphLoader(client *graph.Client, log *zap.Logger) *GraphLoader {
	return &GraphLoader{
		client: client,
		log:    log.Named("copilot.graphloader"),
	}
}

func (g *GraphLoader) GetFileInfo(ctx context.Context, contextID, eventUPN string) (*FileInfo, error) {
	siteURL, ok := SiteURL(contextID)
	if !ok {
		return nil, fmt.Errorf("invalid document context id %q", contextID)
	}
	itemID := DriveItemID(contextID)
	if itemID == "" {
		g.log.Warn("no drive item id in document context", zap.String("context_id", contextID))
		return nil, nil
	}

	var (
		driveID string
		err     error
	)
	if IsMySiteURL(siteURL) {
		driveID, err = g.userDriveID(ctx, eventUPN)
	} else {
		driveID, err = g.siteDriveID(ctx, siteURL)
	}
	if err != nil {
		return nil, err
	}
	if driveID == "" {
		return nil, nil
	}

	var item graphDriveItem
	itemURL := fmt.Sprintf("%s/drives/%s/items/%s?$select=name,webUrl",
		g.client.BaseURL(), driveID, url.PathEscape(itemID))
	if err := g.client.GetJSON(ctx, itemURL, &item); err != nil {
		if errors.Is(err, graph.ErrPermissionDenied) || graph.IsNotFound(err) {
			g.log.Warn("file lookup miss", zap.String("context_id", contextID), zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("get drive item %s: %w", itemID, err)
	}

	return &FileInfo{
		Name:      item.Name,
		Extension: strings.TrimPrefix(path.Ext(item.Name), "."),
		URL:       item.WebURL,
		SiteURL:   siteURL,
	}, nil
}

func (g *GraphLoader) GetMeetingInfo(ctx context.Context, meetingID, userGuid string) (*MeetingInfo, error) {
	var meeting graphMeeting
	meetingURL := fmt.Sprintf("%s/users/%s/onlineMeetings/%s",
		g.client.BaseURL(), url.PathEscape(userGuid), url.PathEscape(meetingID))
	if err := g.client.GetJSON(ctx, meetingURL, &meeting); err != nil {
		if errors.Is(err, graph.ErrPermissionDenied) || graph.IsNotFound(err) {
			g.log.Warn("meeting lookup miss", zap.String("meeting_id", meetingID), zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("get online meeting %s: %w", meetingID, err)
	}
	return &MeetingInfo{Subject: meeting.Subject, Created: meeting.CreationDateTime}, nil
}

func (g *GraphLoader) GetUserIDFromUpn(ctx context.Context, upn string) (string, error) {
	if v, ok := g.users.Load(upn); ok {
		return v.(string), nil
	}
	v, err, _ := g.userGroup.Do(upn, func() (any, error) {
		if v, ok := g.users.Load(upn); ok {
			return v, nil
		}
		var user graphDirUser
		userURL := fmt.Sprintf("%s/users/%s?$select=id", g.client.BaseURL(), url.PathEscape(upn))
		if err := g.client.GetJSON(ctx, userURL, &user); err != nil {
			return nil, fmt.Errorf("get user %s: %w", upn, err)
		}
		if user.ID == "" {
			return nil, fmt.Errorf("no directory id for user %s", upn)
		}
		g.users.Store(upn, user.ID)
		return user.ID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// userDriveID resolves the personal drive of the acting user. Misses return
// "" with a warning.
func (g *GraphLoader) userDriveID(ctx context.Context, upn string) (string, error) {
	key := "user:" + upn
	if v, ok := g.sites.Load(key); ok {
		return v.(string), nil
	}
	v, err, _ := g.siteGroup.Do(key, func() (any, error) {
		if v, ok := g.sites.Load(key); ok {
			return v, nil
		}
		var drive driveRef
		driveURL := fmt.Sprintf("%s/users/%s/drive?$select=id", g.client.BaseURL(), url.PathEscape(upn))
		if err := g.client.GetJSON(ctx, driveURL, &drive); err != nil {
			if errors.Is(err, graph.ErrPermissionDenied) || graph.IsNotFound(err) {
				g.log.Warn("no drive for user", zap.String("upn", upn), zap.Error(err))
				g.sites.Store(key, "")
				return "", nil
			}
			return nil, fmt.Errorf("get drive for user %s: %w", upn, err)
		}
		g.sites.Store(key, drive.ID)
		return drive.ID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// siteDriveID resolves a site's default drive via the two-step site-id then
// drive lookup. Misses return "" with a warning.
func (g *GraphLoader) siteDriveID(ctx context.Context, siteURL string) (string, error) {
	key := "site:" + siteURL
	if v, ok := g.sites.Load(key); ok {
		return v.(string), nil
	}
	v, err, _ := g.siteGroup.Do(key, func() (any, error) {
		if v, ok := g.sites.Load(key); ok {
			return v, nil
		}
		address, ok := HostAndSitePath(siteURL)
		if !ok {
			return nil, fmt.Errorf("invalid site url %q", siteURL)
		}

		var site graphSite
		siteAddr := fmt.Sprintf("%s/sites/%s", g.client.BaseURL(), address)
		if err := g.client.GetJSON(ctx, siteAddr, &site); err != nil {
			if errors.Is(err, graph.ErrPermissionDenied) || graph.IsNotFound(err) {
				g.log.Warn("no site for url", zap.String("site_url", siteURL), zap.Error(err))
				g.sites.Store(key, "")
				return "", nil
			}
			return nil, fmt.Errorf("get site %s: %w", siteURL, err)
		}

		var drive driveRef
		driveURL := fmt.Sprintf("%s/sites/%s/drive?$select=id", g.client.BaseURL(), url.PathEscape(site.ID))
		if err := g.client.GetJSON(ctx, driveURL, &drive); err != nil {
			if errors.Is(err, graph.ErrPermissionDenied) || graph.IsNotFound(err) {
				g.log.Warn("no drive for site", zap.String("site_url", siteURL), zap.Error(err))
				g.sites.Store(key, "")
				return "", nil
			}
			return nil, fmt.Errorf("get drive for site %s: %w", siteURL, err)
		}
		g.sites.Store(key, drive.ID)
		return drive.ID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
