package domain

import (
	"strconv"
	"strings"
)

// ActivityRecordBase carries the fields every usage report row shares.
type ActivityRecordBase struct {
	ReportRefreshDate string `json:"reportRefreshDate"`
	UserPrincipalName string `json:"userPrincipalName"`
	LastActivityDate  string `json:"lastActivityDate"`
}

func (r ActivityRecordBase) UPN() string { return r.UserPrincipalName }

// ActivityRecord is satisfied by every workload's wire record.
type ActivityRecord interface {
	UPN() string
	// CountActivity sums the workload's counters; a zero total marks a
	// record with no activity, which loaders drop before persistence.
	CountActivity() int64
}

// TeamsActivityRecord mirrors reportroot/getTeamsUserActivityUserDetail rows.
type TeamsActivityRecord struct {
	ActivityRecordBase
	TeamChatMessageCount    int64  `json:"teamChatMessageCount"`
	PrivateChatMessageCount int64  `json:"privateChatMessageCount"`
	CallCount               int64  `json:"callCount"`
	MeetingCount            int64  `json:"meetingCount"`
	MeetingsAttendedCount   int64  `json:"meetingsAttendedCount"`
	MeetingsOrganizedCount  int64  `json:"meetingsOrganizedCount"`
	AudioDuration           string `json:"audioDuration"`
	VideoDuration           string `json:"videoDuration"`
	ScreenShareDuration     string `json:"screenShareDuration"`
}

func (r TeamsActivityRecord) CountActivity() int64 {
	return r.TeamChatMessageCount +
		r.PrivateChatMessageCount +
		r.CallCount +
		r.MeetingCount +
		r.MeetingsAttendedCount +
		r.MeetingsOrganizedCount
}

// OutlookActivityRecord mirrors reportroot/getEmailActivityUserDetail rows.
type OutlookActivityRecord struct {
	ActivityRecordBase
	ReadCount         int64 `json:"readCount"`
	ReceiveCount      int64 `json:"receiveCount"`
	SendCount         int64 `json:"sendCount"`
	MeetingCreated    int64 `json:"meetingCreatedCount"`
	MeetingInteracted int64 `json:"meetingInteractedCount"`
}

func (r OutlookActivityRecord) CountActivity() int64 {
	return r.ReadCount + r.ReceiveCount + r.SendCount + r.MeetingCreated + r.MeetingInteracted
}

// OneDriveActivityRecord mirrors reportroot/getOneDriveActivityUserDetail rows.
type OneDriveActivityRecord struct {
	ActivityRecordBase
	SharedInternally int64 `json:"sharedInternallyFileCount"`
	SharedExternally int64 `json:"sharedExternallyFileCount"`
	Synced           int64 `json:"syncedFileCount"`
	ViewedOrEdited   int64 `json:"viewedOrEditedFileCount"`
}

func (r OneDriveActivityRecord) CountActivity() int64 {
	return r.SharedInternally + r.SharedExternally + r.Synced + r.ViewedOrEdited
}

// SharePointActivityRecord mirrors reportroot/getSharePointActivityUserDetail rows.
type SharePointActivityRecord struct {
	ActivityRecordBase
	SharedInternally int64 `json:"sharedInternallyFileCount"`
	SharedExternally int64 `json:"sharedExternallyFileCount"`
	Synced           int64 `json:"syncedFileCount"`
	ViewedOrEdited   int64 `json:"viewedOrEditedFileCount"`
}

func (r SharePointActivityRecord) CountActivity() int64 {
	return r.SharedInternally + r.SharedExternally + r.Synced + r.ViewedOrEdited
}

// ParseISODurationSeconds converts report durations like "PT1H12M5S" to whole
// seconds. Malformed input yields 0; the reports omit durations more often
// than they malform them.
func ParseISODurationSeconds(value string) int {
	s := strings.TrimSpace(strings.ToUpper(value))
	if !strings.HasPrefix(s, "PT") {
		return 0
	}
	s = s[2:]

	total := 0
	num := strings.Builder{}
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			num.WriteRune(ch)
			continue
		}
		n, err := strconv.Atoi(num.String())
		if err != nil {
			return 0
		}
		num.Reset()
		switch ch {
		case 'H':
			total += n * 3600
		case 'M':
			total += n * 60
		case 'S':
			total += n
		default:
			return 0
		}
	}
	return total
}
