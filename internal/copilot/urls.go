// Package copilot enriches raw copilot audit events with file and meeting
// metadata resolved through the Graph API.
package copilot

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// ContextTypeTeamsMeeting marks a meeting context; everything else is
// treated as a document reference.
const ContextTypeTeamsMeeting = "TeamsMeeting"

// SiteURL derives the owning site URL from a document context id, e.g.
// https://contoso.sharepoint.com/sites/hr/Shared%20Documents/doc.docx ->
// https://contoso.sharepoint.com/sites/hr. Root-site documents resolve to
// the bare host.
func SiteURL(contextID string) (string, bool) {
	u, err := url.Parse(contextID)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	root := u.Scheme + "://" + u.Host

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) >= 2 {
		switch strings.ToLower(segs[0]) {
		case "sites", "teams", "personal":
			return root + "/" + segs[0] + "/" + segs[1], true
		}
	}
	return root, true
}

// IsMySiteURL reports whether the site is a personal OneDrive site.
func IsMySiteURL(siteURL string) bool {
	u, err := url.Parse(siteURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), "-my.sharepoint.com")
}

// HostAndSitePath renders a site URL in Graph's sites addressing form,
// hostname:/server-relative-path.
func HostAndSitePath(siteURL string) (string, bool) {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Host, true
	}
	return u.Host + ":/" + path, true
}

// DriveItemID extracts the document unique id from a context id's
// sourcedoc query parameter ({GUID} braces stripped). Empty when absent.
func DriveItemID(contextID string) string {
	u, err := url.Parse(contextID)
	if err != nil {
		return ""
	}
	sourcedoc := u.Query().Get("sourcedoc")
	sourcedoc = strings.TrimPrefix(sourcedoc, "{")
	sourcedoc = strings.TrimSuffix(sourcedoc, "}")
	return sourcedoc
}

// ThreadID extracts the Teams chat thread id from a meeting context URL
// (the segment after /threads/).
func ThreadID(contextID string) (string, bool) {
	const marker = "/threads/"
	idx := strings.Index(contextID, marker)
	if idx < 0 {
		return "", false
	}
	id := contextID[idx+len(marker):]
	if slash := strings.IndexByte(id, '/'); slash >= 0 {
		id = id[:slash]
	}
	if id == "" {
		return "", false
	}
	return id, true
}

// OnlineMeetingID composes the Graph online meeting id for a meeting
// context and the organizing user's directory guid.
func OnlineMeetingID(contextID, userGuid string) (string, error) {
	threadID, ok := ThreadID(contextID)
	if !ok {
		return "", fmt.Errorf("no thread id in meeting context %q", contextID)
	}
	raw := fmt.Sprintf("1*%s*0**%s", userGuid, threadID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw)), nil
}
