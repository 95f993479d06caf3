package turn

import (
	"sort"
	"strings"
	"time"
)

// DiplomaticReply is a message from one or more countries to the player.
type DiplomaticReply struct {
	Participants []string
	Response     string
}

// Stamp supplies the time and ids for new messages and threads.
type Stamp struct {
	Now   func() time.Time
	NewID func(prefix string) string
}

// MatchKind tells how a participant set was matched to a thread.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchFuzzy
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchFuzzy:
		return "fuzzy"
	}
	return "none"
}

// NormalizeParticipants trims names, drops empties and the player's own
// country, and removes duplicates. Comparison ignores case and accents; the
// first spelling seen is kept.
func NormalizeParticipants(participants []string, playerCountry string) []string {
	player := fold(playerCountry)
	seen := make(map[string]bool, len(participants))
	var out []string
	for _, p := range participants {
		p = strings.TrimSpace(p)
		k := fold(p)
		if k == "" || k == player || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}

func participantKeys(participants []string) []string {
	keys := make([]string, len(participants))
	for i, p := range participants {
		keys[i] = fold(p)
	}
	sort.Strings(keys)
	return keys
}

// MatchThread finds the thread for a normalized participant set. An exact
// match compares the sorted sets element-wise. Failing that, the first
// thread sharing any participant is a fuzzy match. It returns -1 and
// MatchNone when nothing matches.
func MatchThread(threads []DiplomaticThread, participants []string) (int, MatchKind) {
	if len(participants) == 0 {
		return -1, MatchNone
	}
	want := participantKeys(participants)

	for i, t := range threads {
		have := participantKeys(t.Participants)
		if equalKeys(have, want) {
			return i, MatchExact
		}
	}

	wanted := make(map[string]bool, len(want))
	for _, k := range want {
		wanted[k] = true
	}
	for i, t := range threads {
		for _, p := range t.Participants {
			if wanted[fold(p)] {
				return i, MatchFuzzy
			}
		}
	}
	return -1, MatchNone
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RouteReply appends a reply to the matching thread, or to a new thread, and
// returns the new thread list with the kind of match used. The reply counts
// as unread. Replies with no participants besides the player, or with an
// empty response, are dropped and reported as MatchNone with ok=false.
func RouteReply(threads []DiplomaticThread, reply DiplomaticReply, playerCountry string, st Stamp) ([]DiplomaticThread, MatchKind, bool) {
	participants := NormalizeParticipants(reply.Participants, playerCountry)
	content := strings.TrimSpace(reply.Response)
	if len(participants) == 0 || content == "" {
		return threads, MatchNone, false
	}

	now := st.Now()
	msg := DiplomaticMessage{
		ID:        st.NewID("msg"),
		Sender:    strings.Join(participants, ", "),
		Content:   content,
		Timestamp: now,
	}

	out, idx, kind := threadFor(threads, participants, st)
	t := &out[idx]
	t.Messages = append(t.Messages, msg)
	t.UnreadCount++
	t.LastUpdated = now
	return out, kind, true
}

// PostPlayerMessage appends a message written by the player. threadID selects
// an existing thread; when it is empty the thread is found or created from
// participants. Player messages never count as unread. It returns the new
// thread list and the id of the thread written to, or ok=false when the
// thread is unknown or the message has nowhere to go.
func PostPlayerMessage(threads []DiplomaticThread, threadID string, participants []string, content, playerCountry string, st Stamp) ([]DiplomaticThread, string, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return threads, "", false
	}

	var out []DiplomaticThread
	idx := -1
	if threadID != "" {
		out = cloneThreads(threads)
		for i := range out {
			if out[i].ID == threadID {
				idx = i
				break
			}
		}
	} else {
		normalized := NormalizeParticipants(participants, playerCountry)
		if len(normalized) == 0 {
			return threads, "", false
		}
		out, idx, _ = exactThreadFor(threads, normalized, st)
	}
	if idx < 0 {
		return threads, "", false
	}

	now := st.Now()
	t := &out[idx]
	t.Messages = append(t.Messages, DiplomaticMessage{
		ID:        st.NewID("msg"),
		Sender:    playerCountry,
		Content:   content,
		Timestamp: now,
	})
	t.LastUpdated = now
	return out, t.ID, true
}

// MarkRead resets the unread counter of a thread.
func MarkRead(threads []DiplomaticThread, threadID string) ([]DiplomaticThread, bool) {
	out := cloneThreads(threads)
	for i := range out {
		if out[i].ID == threadID {
			out[i].UnreadCount = 0
			return out, true
		}
	}
	return threads, false
}

// threadFor returns a copy of threads and the index of the thread a reply
// from participants belongs to, creating one if needed.
func threadFor(threads []DiplomaticThread, participants []string, st Stamp) ([]DiplomaticThread, int, MatchKind) {
	out := cloneThreads(threads)
	if i, kind := MatchThread(out, participants); i >= 0 {
		return out, i, kind
	}
	out = append(out, newThread(participants, st))
	return out, len(out) - 1, MatchNone
}

// exactThreadFor is threadFor without the fuzzy fallback.
func exactThreadFor(threads []DiplomaticThread, participants []string, st Stamp) ([]DiplomaticThread, int, MatchKind) {
	out := cloneThreads(threads)
	if i, kind := MatchThread(out, participants); kind == MatchExact {
		return out, i, kind
	}
	out = append(out, newThread(participants, st))
	return out, len(out) - 1, MatchNone
}

func newThread(participants []string, st Stamp) DiplomaticThread {
	return DiplomaticThread{
		ID:           st.NewID("thread"),
		Participants: append([]string(nil), participants...),
		Messages:     []DiplomaticMessage{},
		LastUpdated:  st.Now(),
	}
}

func cloneThreads(threads []DiplomaticThread) []DiplomaticThread {
	out := make([]DiplomaticThread, len(threads))
	for i, t := range threads {
		out[i] = t.clone()
	}
	return out
}
