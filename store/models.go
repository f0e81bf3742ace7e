package store

import (
	"time"

	"github.com/google/uuid"
)

type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
)

// Device is the registered identity record for one connected socket.
// It lives in the store for exactly the lifetime of the connection.
type Device struct {
	ID          string         `json:"id"`
	Addr        string         `json:"addr"`
	Name        string         `json:"name"`
	ConnectedAt time.Time      `json:"connectedAt"`
	Status      DeviceStatus   `json:"status"`
	Settings    DeviceSettings `json:"settings"`
}

type DeviceSettings struct {
	DoNotDisturb           bool `json:"doNotDisturb"`
	NotificationsEnabled   bool `json:"notificationsEnabled"`
	RefreshIntervalSeconds int  `json:"refreshIntervalSeconds"`
}

func defaultDeviceSettings() DeviceSettings {
	return DeviceSettings{NotificationsEnabled: true, RefreshIntervalSeconds: 60}
}

// NewDevice constructs an online device record for a freshly accepted
// connection.
func NewDevice(addr string) Device {
	return Device{
		ID:          "device-" + uuid.NewString()[:8],
		Addr:        addr,
		Name:        "Unknown",
		ConnectedAt: time.Now().UTC(),
		Status:      StatusOnline,
		Settings:    defaultDeviceSettings(),
	}
}

// Profile is a user profile. Passcodes are stored as bcrypt hashes, never
// in the clear.
type Profile struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	PasscodeHash     []byte          `json:"-"`
	CreatedAt        time.Time       `json:"createdAt"`
	LastLogin        time.Time       `json:"lastLogin"`
	SpotifyProfileID string          `json:"spotifyProfileId,omitempty"`
	Settings         ProfileSettings `json:"settings"`
}

type ProfileSettings struct {
	AppLayouts    map[string]any `json:"appLayouts"`
	HomeAssistant map[string]any `json:"homeAssistant"`
}

func NewProfile(name string, passcodeHash []byte) Profile {
	now := time.Now().UTC()
	return Profile{
		ID:           uuid.NewString(),
		Name:         name,
		PasscodeHash: passcodeHash,
		CreatedAt:    now,
		LastLogin:    now,
		Settings: ProfileSettings{
			AppLayouts:    make(map[string]any),
			HomeAssistant: make(map[string]any),
		},
	}
}

// SpotifyProfile holds one linked Spotify account's session state,
// refreshed by the background pollers.
type SpotifyProfile struct {
	ID               string          `json:"id"`
	DisplayName      string          `json:"displayName"`
	Email            string          `json:"email"`
	AccessToken      string          `json:"-"`
	RefreshToken     string          `json:"-"`
	LastActive       time.Time       `json:"lastActive"`
	Playlists        []UserPlaylist  `json:"playlists"`
	ActivePlaylistID string          `json:"activePlaylistId,omitempty"`
	Playback         *PlaybackInfo   `json:"playback,omitempty"`
	Devices          []SpotifyDevice `json:"devices"`
}

// clone returns a copy sharing no mutable state with the receiver.
// Accessors hand these out so no caller ever aliases a stored Playback
// pointer or slice across the store's lock.
func (p SpotifyProfile) clone() SpotifyProfile {
	out := p
	if p.Playback != nil {
		pb := *p.Playback
		pb.Queue = append([]QueueItem(nil), p.Playback.Queue...)
		out.Playback = &pb
	}
	if p.Playlists != nil {
		out.Playlists = append([]UserPlaylist(nil), p.Playlists...)
	}
	if p.Devices != nil {
		out.Devices = append([]SpotifyDevice(nil), p.Devices...)
	}
	return out
}

type UserPlaylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PlaybackInfo struct {
	SongID        string      `json:"songId"`
	PlaylistID    string      `json:"playlistId"`
	PlaybackState bool        `json:"playbackState"`
	SongName      string      `json:"songName"`
	ArtistName    string      `json:"artistName"`
	SongImage     string      `json:"songImage"`
	ActiveDevice  string      `json:"activeDevice"`
	ProgressMs    int         `json:"progressMs"`
	DurationMs    int         `json:"durationMs"`
	ShuffleState  bool        `json:"shuffleState"`
	RepeatState   string      `json:"repeatState"`
	Queue         []QueueItem `json:"queue"`
}

type QueueItem struct {
	SongID     string `json:"songId"`
	SongName   string `json:"songName"`
	ArtistName string `json:"artistName"`
	SongImage  string `json:"songImage"`
	DurationMs int    `json:"durationMs"`
}

type SpotifyDevice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IsActive      bool   `json:"isActive"`
	Type          string `json:"type"`
	VolumePercent int    `json:"volumePercent"`
}

// Weather models, shaped for direct serialization to UI clients.

type WeatherData struct {
	Condition   string `json:"condition"`
	Description string `json:"description"`
	Temp        int    `json:"temp"`
	FeelsLike   int    `json:"feelsLike"`
	TempMin     int    `json:"tempMin"`
	TempMax     int    `json:"tempMax"`
	Humidity    int    `json:"humidity"`
	Pressure    int    `json:"pressure"`
	WindSpeed   int    `json:"windSpeed"`
	WindDeg     int    `json:"windDeg"`
	Visibility  int    `json:"visibility"`
	Clouds      int    `json:"clouds"`
}

type ForecastDay struct {
	Date      string `json:"date"`
	Temp      int    `json:"temp"`
	TempMin   int    `json:"tempMin"`
	TempMax   int    `json:"tempMax"`
	Condition string `json:"condition"`
	Humidity  int    `json:"humidity"`
	WindSpeed int    `json:"windSpeed"`
}

// SunTimes holds sunrise/sunset as decimal local hours, e.g. 6.5 = 06:30.
type SunTimes struct {
	Sunrise float64 `json:"sunrise"`
	Sunset  float64 `json:"sunset"`
}

// IPInfo is the server's public geolocation, fetched once at startup and
// used to parameterize weather lookups.
type IPInfo struct {
	IP          string  `json:"ip"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	Country     string  `json:"country"`
	CountryName string  `json:"country_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
}

// PCConfig describes the one remote PC the hub can wake or shut down.
type PCConfig struct {
	Name        string `json:"name"`
	MacAddress  string `json:"macAddress"`
	IP          string `json:"ip"`
	BroadcastIP string `json:"broadCastIp"`
	Shutdown    bool   `json:"shutdown"`
	WakeOnLan   bool   `json:"wakeOnLan"`
}
