package enrichment

import (
	"sort"
	"sync"

	"github.com/dennisdiepolder/monti/outreach/internal/identity"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// Cache holds the best-known enrichment state per candidate id.
// Entries are only replaced as a whole; callers get copies.
type Cache struct {
	mu               sync.RWMutex
	entries          map[int64]*types.EnrichmentEntry
	attendanceByID   map[int64]bool
	attendanceByName map[string]bool
	validApplication map[int64]bool
}

// NewCache creates an empty cache
func NewCache() *Cache {
	c := &Cache{}
	c.reset()
	return c
}

func (c *Cache) reset() {
	c.entries = make(map[int64]*types.EnrichmentEntry)
	c.attendanceByID = make(map[int64]bool)
	c.attendanceByName = make(map[string]bool)
	c.validApplication = make(map[int64]bool)
}

// Clear drops everything; used on a full data reload
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Get returns a copy of the entry for id
func (c *Cache) Get(id int64) (types.EnrichmentEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return types.EnrichmentEntry{}, false
	}
	return *e, true
}

// Put stores entry, replacing any previous one
func (c *Cache) Put(entry types.EnrichmentEntry) {
	if entry.ID <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(entry)
}

func (c *Cache) putLocked(entry types.EnrichmentEntry) {
	e := entry
	c.entries[entry.ID] = &e
	if entry.AttendanceConfirmed != nil {
		c.attendanceByID[entry.ID] = *entry.AttendanceConfirmed
		if key := identity.NameKey(entry.Name); key != "" {
			c.attendanceByName[key] = *entry.AttendanceConfirmed
		}
	}
}

// Update applies fn to the entry for id, creating it when absent, and
// returns the entries before and after
func (c *Cache) Update(id int64, fn func(*types.EnrichmentEntry)) (before, after types.EnrichmentEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.entries[id]
	if ok {
		before = *cur
	} else {
		before = types.EnrichmentEntry{Candidate: types.Candidate{ID: id}}
	}
	after = before
	fn(&after)
	after.ID = id
	c.putLocked(after)
	return before, after
}

// Seed merges bulk-listing candidates. Existing entries keep their fetched
// flags and any field the listing leaves blank.
func (c *Cache) Seed(candidates []types.Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cand := range candidates {
		if cand.ID <= 0 {
			continue
		}
		entry := types.EnrichmentEntry{}
		if cur, ok := c.entries[cand.ID]; ok {
			entry = *cur
		}
		entry.Candidate = mergeCandidate(entry.Candidate, cand)
		c.putLocked(entry)
	}
}

// SetAttendance records a confirmed attendance flag from a local edit
func (c *Cache) SetAttendance(id int64, name string, confirmed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id > 0 {
		c.attendanceByID[id] = confirmed
		if e, ok := c.entries[id]; ok {
			v := confirmed
			e.AttendanceConfirmed = &v
		}
	}
	if key := identity.NameKey(name); key != "" {
		c.attendanceByName[key] = confirmed
	}
}

// Attendance looks up the attendance flag by id
func (c *Cache) Attendance(id int64) (confirmed, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	confirmed, ok = c.attendanceByID[id]
	return confirmed, ok
}

// AttendanceByName looks up the attendance flag by normalized name
func (c *Cache) AttendanceByName(name string) (confirmed, ok bool) {
	key := identity.NameKey(name)
	if key == "" {
		return false, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	confirmed, ok = c.attendanceByName[key]
	return confirmed, ok
}

// SetValidApplication stores a resolved eligibility result; nil removes it
func (c *Cache) SetValidApplication(id int64, v *bool) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, had := c.validApplication[id]
	if v == nil {
		delete(c.validApplication, id)
		return had
	}
	c.validApplication[id] = *v
	return !had || prev != *v
}

// ValidApplication returns the resolved eligibility of id
func (c *Cache) ValidApplication(id int64) (valid, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	valid, ok = c.validApplication[id]
	return valid, ok
}

// Entries returns copies of all entries ordered by id
func (c *Cache) Entries() []types.EnrichmentEntry {
	c.mu.RLock()
	out := make([]types.EnrichmentEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// mergeCandidate overlays non-empty fields of next onto cur
func mergeCandidate(cur, next types.Candidate) types.Candidate {
	out := cur
	if next.ID > 0 {
		out.ID = next.ID
	}
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&out.Name, next.Name)
	setString(&out.Phone, next.Phone)
	setString(&out.Email, next.Email)
	setString(&out.Birthday, next.Birthday)
	setString(&out.AgeText, next.AgeText)
	setString(&out.ContactPreferredTime, next.ContactPreferredTime)
	setString(&out.CSStatus, next.CSStatus)
	setString(&out.Nationality, next.Nationality)
	setString(&out.JapaneseLevel, next.JapaneseLevel)
	setString(&out.RegisteredAt, next.RegisteredAt)
	if next.Age != nil {
		out.Age = next.Age
	}
	if next.AttendanceConfirmed != nil {
		out.AttendanceConfirmed = next.AttendanceConfirmed
	}
	if next.FirstInterviewDate != nil {
		out.FirstInterviewDate = next.FirstInterviewDate
	}
	if next.ValidApplication != nil {
		out.ValidApplication = next.ValidApplication
	}
	return out
}
