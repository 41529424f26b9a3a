package identity

import (
	"sort"
	"strings"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// Resolver maps logs to candidate ids through name, phone and email indexes.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	region    string
	byName    map[string]int64
	byNameKey map[string]int64
	byPhone   map[string]int64
	byEmail   map[string]int64
	// candidate names ordered by normalized length, longest first
	names []nameEntry
}

type nameEntry struct {
	key string
	id  int64
}

// NewResolver indexes the candidate master list. The first candidate wins
// when several share a key.
func NewResolver(region string, candidates []types.Candidate) *Resolver {
	r := &Resolver{
		region:    region,
		byName:    make(map[string]int64),
		byNameKey: make(map[string]int64),
		byPhone:   make(map[string]int64),
		byEmail:   make(map[string]int64),
	}

	for _, c := range candidates {
		if c.ID <= 0 {
			continue
		}
		if name := strings.TrimSpace(c.Name); name != "" {
			putFirst(r.byName, name, c.ID)
			if key := NameKey(name); key != "" {
				if _, seen := r.byNameKey[key]; !seen {
					r.names = append(r.names, nameEntry{key: key, id: c.ID})
				}
				putFirst(r.byNameKey, key, c.ID)
			}
		}
		if key := PhoneKey(c.Phone, region); key != "" {
			putFirst(r.byPhone, key, c.ID)
		}
		if key := EmailKey(c.Email); key != "" {
			putFirst(r.byEmail, key, c.ID)
		}
	}

	sort.SliceStable(r.names, func(i, j int) bool {
		return len([]rune(r.names[i].key)) > len([]rune(r.names[j].key))
	})
	return r
}

func putFirst(m map[string]int64, key string, id int64) {
	if _, ok := m[key]; !ok {
		m[key] = id
	}
}

// ResolveByName matches a name exactly, then by normalized key
func (r *Resolver) ResolveByName(name string) int64 {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0
	}
	if id, ok := r.byName[name]; ok {
		return id
	}
	return r.byNameKey[NameKey(name)]
}

// ResolveByTarget is ResolveByName with a fallback to the longest candidate
// name contained in target. The fallback is heuristic: with names that are
// substrings of each other ("田中" inside "田中太郎商事") it can pick the
// wrong candidate.
func (r *Resolver) ResolveByTarget(target string) int64 {
	if id := r.ResolveByName(target); id > 0 {
		return id
	}
	key := NameKey(target)
	if key == "" {
		return 0
	}
	for _, n := range r.names {
		if strings.Contains(key, n.key) {
			return n.id
		}
	}
	return 0
}

// ResolvePhone looks a number up in the phone index
func (r *Resolver) ResolvePhone(raw string) int64 {
	key := PhoneKey(raw, r.region)
	if key == "" {
		return 0
	}
	return r.byPhone[key]
}

// ResolveEmail looks an address up in the email index
func (r *Resolver) ResolveEmail(raw string) int64 {
	key := EmailKey(raw)
	if key == "" {
		return 0
	}
	return r.byEmail[key]
}

// ResolveCandidateID tries the log's own id, then name, then phone, then email
func (r *Resolver) ResolveCandidateID(entry types.CallLogEntry) int64 {
	if entry.CandidateID > 0 {
		return entry.CandidateID
	}
	if r == nil {
		return 0
	}
	if id := r.ResolveByTarget(entry.CandidateName); id > 0 {
		return id
	}
	if id := r.ResolvePhone(entry.Phone); id > 0 {
		return id
	}
	return r.ResolveEmail(entry.Email)
}

// Hydrate returns a copy of logs with missing candidate ids backfilled
func (r *Resolver) Hydrate(logs []types.CallLogEntry) []types.CallLogEntry {
	out := make([]types.CallLogEntry, len(logs))
	for i, entry := range logs {
		if entry.CandidateID <= 0 {
			entry.CandidateID = r.ResolveCandidateID(entry)
		}
		out[i] = entry
	}
	return out
}

// Size returns the number of indexed candidate names
func (r *Resolver) Size() int {
	return len(r.names)
}
