package graph

import "time"

// Config carries the Graph API credentials and endpoint selection. Only
// ClientSecret comes from the environment (the variable named by the YAML
// graph.client_secret_env); TenantID and ClientID are the YAML graph
// section's tenant_id and client_id values, not separate environment
// variables.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// UseBeta selects the beta endpoint. The transcript-download surface
	// (getAllTranscripts) only exists on beta.
	UseBeta bool
}

// Subscription mirrors a Graph change-notification subscription resource.
type Subscription struct {
	ID                 string    `json:"id"`
	Resource           string    `json:"resource"`
	ChangeType         string    `json:"changeType"`
	NotificationURL    string    `json:"notificationUrl"`
	ClientState        string    `json:"clientState,omitempty"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
}

// CallRecord is the subset of the communications/callRecords resource this
// module reads.
type CallRecord struct {
	ID            string            `json:"id"`
	Subject       string            `json:"subject,omitempty"`
	StartDateTime time.Time         `json:"startDateTime"`
	EndDateTime   time.Time         `json:"endDateTime"`
	JoinWebURL    string            `json:"joinWebUrl"`
	ChatID        string            `json:"chatId,omitempty"`
	Organizer     *CallOrganizer    `json:"organizer,omitempty"`
	Sessions      []CallSession     `json:"sessions,omitempty"`
}

// CallOrganizer wraps the organizer identity set on a call record, when
// present — call records don't always carry one, unlike calendar events.
type CallOrganizer struct {
	User *Identity `json:"user,omitempty"`
}

// CallSession is one leg of a call record (caller/callee pair).
type CallSession struct {
	ID     string    `json:"id"`
	Caller *Endpoint `json:"caller,omitempty"`
	Callee *Endpoint `json:"callee,omitempty"`
}

// Endpoint wraps an identity set for one side of a session.
type Endpoint struct {
	Identity *IdentitySet `json:"identity,omitempty"`
}

// IdentitySet groups the possible identity shapes Graph returns for a call
// participant: an AAD user, a phone (PSTN), a cross-tenant guest, or an
// external Communication Services identity.
type IdentitySet struct {
	User    *Identity `json:"user,omitempty"`
	Phone   *Identity `json:"phone,omitempty"`
	Guest   *Identity `json:"guest,omitempty"`
	ACSUser *Identity `json:"acsUser,omitempty"`
}

// Identity is a minimal AAD identity (user, phone, guest, etc). Email is
// only ever populated for guest identities — Graph includes it inline
// there but never for internal users, who must be resolved via a
// directory lookup.
type Identity struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// User is the subset of the Graph user resource this module consumes.
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	JobTitle          string `json:"jobTitle,omitempty"`
}

// TranscriptMeta describes one entry returned by getAllTranscripts.
type TranscriptMeta struct {
	ID               string    `json:"id"`
	MeetingID        string    `json:"meetingId"`
	MeetingOrganizerID string  `json:"meetingOrganizerId"`
	CreatedDateTime  time.Time `json:"createdDateTime"`
}

// DateTimeTimeZone is Graph's wire shape for calendar timestamps: a naive
// local time paired with an IANA zone name rather than an offset.
type DateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// Time parses the zoned timestamp, defaulting to UTC if the zone name
// can't be loaded (e.g. "UTC" itself, which time.LoadLocation handles, or
// an unfamiliar Windows zone name).
func (d DateTimeTimeZone) Time() (time.Time, error) {
	loc, err := time.LoadLocation(d.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02T15:04:05.9999999", d.DateTime, loc)
}

// CalendarEvent is the subset of a calendar view entry used for fallback
// meeting discovery.
type CalendarEvent struct {
	ID               string           `json:"id"`
	Subject          string           `json:"subject"`
	Start            DateTimeTimeZone `json:"start"`
	End              DateTimeTimeZone `json:"end"`
	OnlineMeetingURL string           `json:"onlineMeetingUrl,omitempty"`
	IsOnlineMeeting  bool             `json:"isOnlineMeeting"`
	Organizer        EventOrganizer   `json:"organizer"`
	Attendees        []EventAttendee  `json:"attendees,omitempty"`
}

// EventOrganizer wraps the emailAddress-shaped organizer field Graph
// returns on calendar events.
type EventOrganizer struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// EventAttendee wraps one calendar event attendee.
type EventAttendee struct {
	EmailAddress EmailAddress `json:"emailAddress"`
	Status       struct {
		Response string `json:"response"`
	} `json:"status"`
}

// EmailAddress is Graph's {name, address} pair used throughout mail and
// calendar resources.
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// OutgoingMail is the payload for sendMail.
type OutgoingMail struct {
	ToEmails  []string
	CCEmails  []string
	Subject   string
	BodyHTML  string
	Importance string // "low", "normal", "high"
}

// Recipient-shaped wire struct, internal to mail.go's marshalling.
type recipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}
