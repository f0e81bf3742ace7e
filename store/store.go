package store

import (
	"strings"
	"sync"
	"time"
)

// Store is the process-wide shared state: connected devices, user
// profiles, linked Spotify sessions and the weather cache. Every entity
// group is guarded by its own RWMutex so unrelated subsystems never
// serialize on each other. Accessors return copies; callers never hold a
// reference into a locked map.
type Store struct {
	startedAt time.Time
	devMode   bool

	dmu     sync.RWMutex
	devices map[string]Device

	pmu      sync.RWMutex
	profiles map[string]Profile

	smu     sync.RWMutex
	spotify map[string]SpotifyProfile

	wmu     sync.RWMutex
	weather *WeatherCache

	lmu      sync.RWMutex
	location *IPInfo

	stmu   sync.RWMutex
	states map[string]any
}

// WeatherCache is the last successful weather fetch plus its timestamp.
type WeatherCache struct {
	Weather         WeatherData
	Forecast        []ForecastDay
	Sun             SunTimes
	UpdatedAt       time.Time
	RefreshInterval time.Duration
}

func New(devMode bool) *Store {
	return &Store{
		startedAt: time.Now().UTC(),
		devMode:   devMode,
		devices:   make(map[string]Device),
		profiles:  make(map[string]Profile),
		spotify:   make(map[string]SpotifyProfile),
		states:    make(map[string]any),
	}
}

func (s *Store) StartedAt() time.Time { return s.startedAt }

func (s *Store) Uptime() time.Duration { return time.Since(s.startedAt) }

func (s *Store) DevMode() bool { return s.devMode }

// ---------- devices ---------- //

func (s *Store) PutDevice(d Device) {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	s.devices[d.ID] = d
}

func (s *Store) Device(id string) (Device, bool) {
	s.dmu.RLock()
	defer s.dmu.RUnlock()
	d, ok := s.devices[id]
	return d, ok
}

// RemoveDevice deletes a device and returns the removed record.
func (s *Store) RemoveDevice(id string) (Device, bool) {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	d, ok := s.devices[id]
	if ok {
		delete(s.devices, id)
	}
	return d, ok
}

func (s *Store) SetDeviceStatus(id string, status DeviceStatus) bool {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return false
	}
	d.Status = status
	s.devices[id] = d
	return true
}

// UpdateDevice applies fn to the stored record under the lock. The update
// is atomic at the entry level: readers see either the old or the new
// device, never a partial write.
func (s *Store) UpdateDevice(id string, fn func(*Device)) bool {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return false
	}
	fn(&d)
	s.devices[id] = d
	return true
}

func (s *Store) Devices() []Device {
	s.dmu.RLock()
	defer s.dmu.RUnlock()
	out := make([]Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	return out
}

func (s *Store) DeviceCount() int {
	s.dmu.RLock()
	defer s.dmu.RUnlock()
	return len(s.devices)
}

// ---------- profiles ---------- //

func (s *Store) PutProfile(p Profile) {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.profiles[p.ID] = p
}

// CreateProfile inserts p unless another profile already holds its name,
// compared case-insensitively. Check and insert run under one lock so
// two concurrent creates for the same name cannot both succeed.
func (s *Store) CreateProfile(p Profile) error {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	for _, existing := range s.profiles {
		if strings.EqualFold(existing.Name, p.Name) {
			return ErrDuplicateName
		}
	}
	s.profiles[p.ID] = p
	return nil
}

func (s *Store) Profile(id string) (Profile, bool) {
	s.pmu.RLock()
	defer s.pmu.RUnlock()
	p, ok := s.profiles[id]
	return p, ok
}

// ProfileByName looks a profile up by case-insensitive name.
func (s *Store) ProfileByName(name string) (Profile, bool) {
	s.pmu.RLock()
	defer s.pmu.RUnlock()
	for _, p := range s.profiles {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Profile{}, false
}

// UpdateProfile applies fn to the stored record under the lock. If fn
// changed the name onto one another profile holds, the update is rejected
// with ErrDuplicateName and nothing is written.
func (s *Store) UpdateProfile(id string, fn func(*Profile) error) error {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&p); err != nil {
		return err
	}
	for otherID, other := range s.profiles {
		if otherID != id && strings.EqualFold(other.Name, p.Name) {
			return ErrDuplicateName
		}
	}
	s.profiles[id] = p
	return nil
}

func (s *Store) DeleteProfile(id string) (Profile, bool) {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	p, ok := s.profiles[id]
	if ok {
		delete(s.profiles, id)
	}
	return p, ok
}

func (s *Store) Profiles() []Profile {
	s.pmu.RLock()
	defer s.pmu.RUnlock()
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out
}

// ---------- spotify profiles ---------- //

func (s *Store) PutSpotifyProfile(p SpotifyProfile) {
	s.smu.Lock()
	defer s.smu.Unlock()
	s.spotify[p.ID] = p
}

func (s *Store) SpotifyProfile(id string) (SpotifyProfile, bool) {
	s.smu.RLock()
	defer s.smu.RUnlock()
	p, ok := s.spotify[id]
	if !ok {
		return SpotifyProfile{}, false
	}
	return p.clone(), true
}

func (s *Store) UpdateSpotifyProfile(id string, fn func(*SpotifyProfile)) bool {
	s.smu.Lock()
	defer s.smu.Unlock()
	p, ok := s.spotify[id]
	if !ok {
		return false
	}
	fn(&p)
	s.spotify[id] = p
	return true
}

func (s *Store) SpotifyProfiles() []SpotifyProfile {
	s.smu.RLock()
	defer s.smu.RUnlock()
	out := make([]SpotifyProfile, 0, len(s.spotify))
	for _, p := range s.spotify {
		out = append(out, p.clone())
	}
	return out
}

// ---------- weather cache ---------- //

func (s *Store) SetWeather(w WeatherData, forecast []ForecastDay, sun SunTimes, interval time.Duration) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.weather = &WeatherCache{
		Weather:         w,
		Forecast:        forecast,
		Sun:             sun,
		UpdatedAt:       time.Now().UTC(),
		RefreshInterval: interval,
	}
}

func (s *Store) Weather() (WeatherCache, bool) {
	s.wmu.RLock()
	defer s.wmu.RUnlock()
	if s.weather == nil {
		return WeatherCache{}, false
	}
	return *s.weather, true
}

// SecondsUntilRefresh tells clients how long until the next weather poll,
// so UI countdowns stay in sync with the server.
func (s *Store) SecondsUntilRefresh() int {
	s.wmu.RLock()
	defer s.wmu.RUnlock()
	if s.weather == nil {
		return 0
	}
	remaining := s.weather.RefreshInterval - time.Since(s.weather.UpdatedAt)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// ---------- location ---------- //

func (s *Store) SetLocation(info IPInfo) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.location = &info
}

func (s *Store) Location() (IPInfo, bool) {
	s.lmu.RLock()
	defer s.lmu.RUnlock()
	if s.location == nil {
		return IPInfo{}, false
	}
	return *s.location, true
}

// ---------- generic runtime flags ---------- //

func (s *Store) SetState(key string, val any) {
	s.stmu.Lock()
	defer s.stmu.Unlock()
	s.states[key] = val
}

func (s *Store) State(key string) (any, bool) {
	s.stmu.RLock()
	defer s.stmu.RUnlock()
	v, ok := s.states[key]
	return v, ok
}
