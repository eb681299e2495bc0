package seed

import (
	"fmt"
	"os"
	"strings"
	"time"

	"warbler/internal/credentials"
	"warbler/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Preset is a hand-written fixture: named users, their messages and who
// follows whom. Example:
//
//	users:
//	  - username: alice
//	    email: alice@example.com
//	    password: secret123
//	    messages: ["first warble"]
//	    follows: [bob]
type Preset struct {
	Users []PresetUser `yaml:"users"`
}

// PresetUser is one user in a Preset.
type PresetUser struct {
	Username string   `yaml:"username"`
	Email    string   `yaml:"email"`
	Password string   `yaml:"password"`
	Bio      string   `yaml:"bio"`
	Location string   `yaml:"location"`
	ImageURL string   `yaml:"image_url"`
	Messages []string `yaml:"messages"`
	Follows  []string `yaml:"follows"`
	Likes    []string `yaml:"likes"` // "username:index" of a message in that user's list
}

// LoadPreset reads and parses a preset file.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	return ParsePreset(data)
}

// ParsePreset decodes and validates preset YAML.
func ParsePreset(data []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks references inside the preset before anything is written.
func (p *Preset) Validate() error {
	known := make(map[string]int, len(p.Users))
	for _, u := range p.Users {
		if u.Username == "" || u.Email == "" || u.Password == "" {
			return fmt.Errorf("preset user %q: username, email and password are required", u.Username)
		}
		if _, dup := known[u.Username]; dup {
			return fmt.Errorf("preset user %q defined twice", u.Username)
		}
		known[u.Username] = len(u.Messages)
		for i, text := range u.Messages {
			if err := models.ValidateMessageText(text); err != nil {
				return fmt.Errorf("preset user %q message %d: %w", u.Username, i, err)
			}
		}
	}
	for _, u := range p.Users {
		for _, name := range u.Follows {
			if _, ok := known[name]; !ok {
				return fmt.Errorf("preset user %q follows unknown user %q", u.Username, name)
			}
			if name == u.Username {
				return fmt.Errorf("preset user %q cannot follow themselves", u.Username)
			}
		}
		for _, ref := range u.Likes {
			author, idx, err := parseLikeRef(ref)
			if err != nil {
				return fmt.Errorf("preset user %q: %w", u.Username, err)
			}
			count, ok := known[author]
			if !ok || idx >= count {
				return fmt.Errorf("preset user %q likes missing message %q", u.Username, ref)
			}
			if author == u.Username {
				return fmt.Errorf("preset user %q cannot like their own message", u.Username)
			}
		}
	}
	return nil
}

func parseLikeRef(ref string) (string, int, error) {
	name, rest, ok := strings.Cut(ref, ":")
	var idx int
	if !ok {
		return "", 0, fmt.Errorf("like %q must be username:index", ref)
	}
	if _, err := fmt.Sscanf(rest, "%d", &idx); err != nil || idx < 0 {
		return "", 0, fmt.Errorf("like %q must be username:index", ref)
	}
	return name, idx, nil
}

// ApplyPreset writes the preset in one transaction. Passwords are hashed with hasher.
func ApplyPreset(db *gorm.DB, hasher *credentials.Hasher, p *Preset) (*Result, error) {
	res := &Result{}
	err := db.Transaction(func(tx *gorm.DB) error {
		ids := make(map[string]uint, len(p.Users))
		msgIDs := make(map[string][]uint, len(p.Users))
		now := time.Now().UTC()

		for _, pu := range p.Users {
			hash, err := hasher.Hash(pu.Password)
			if err != nil {
				return fmt.Errorf("preset user %q: %w", pu.Username, err)
			}
			u := models.User{
				Username: pu.Username,
				Email:    pu.Email,
				Password: hash,
				Bio:      pu.Bio,
				Location: pu.Location,
				ImageURL: pu.ImageURL,
			}
			u.ApplyProfileDefaults()
			if err := tx.Create(&u).Error; err != nil {
				return fmt.Errorf("preset user %q: %w", pu.Username, err)
			}
			ids[pu.Username] = u.ID
			res.Users++

			// Oldest first so the first listed message ends up at the bottom of the feed.
			for i, text := range pu.Messages {
				m := models.Message{
					Text:      text,
					Timestamp: now.Add(time.Duration(i-len(pu.Messages)) * time.Minute),
					UserID:    u.ID,
				}
				if err := tx.Omit("User").Create(&m).Error; err != nil {
					return err
				}
				msgIDs[pu.Username] = append(msgIDs[pu.Username], m.ID)
				res.Messages++
			}
		}

		for _, pu := range p.Users {
			for _, name := range pu.Follows {
				if err := tx.Create(&models.Follow{FollowerID: ids[pu.Username], FolloweeID: ids[name]}).Error; err != nil {
					return fmt.Errorf("preset follow %s -> %s: %w", pu.Username, name, err)
				}
				res.Follows++
			}
			for _, ref := range pu.Likes {
				author, idx, _ := parseLikeRef(ref)
				if err := tx.Create(&models.Like{UserID: ids[pu.Username], MessageID: msgIDs[author][idx]}).Error; err != nil {
					return fmt.Errorf("preset like %s -> %s: %w", pu.Username, ref, err)
				}
				res.Likes++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
