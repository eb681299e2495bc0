package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"warbler/internal/credentials"
	"warbler/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed, presets and tests.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	rnd   *rand.Rand
	// every generated user shares one hash; bcrypt per user is too slow
	passwordHash string
	next         int
}

// NewFactory creates a Factory bound to db. A zero randSeed picks a random one.
func NewFactory(db *gorm.DB, hasher *credentials.Hasher, password string, randSeed int64) (*Factory, error) {
	if password == "" {
		password = DefaultPassword
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	if randSeed == 0 {
		randSeed = time.Now().UnixNano()
	}
	return &Factory{
		db:           db,
		faker:        gofakeit.New(randSeed),
		rnd:          rand.New(rand.NewSource(randSeed)), //nolint:gosec // seeding only
		passwordHash: hash,
	}, nil
}

// BuildUser returns an unsaved user with fake profile fields.
func (f *Factory) BuildUser() *models.User {
	f.next++
	username := fmt.Sprintf("%s%d", strings.ToLower(f.faker.Username()), f.next)
	u := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@%s", username, f.faker.DomainName()),
		Password: f.passwordHash,
		ImageURL: fmt.Sprintf("https://picsum.photos/seed/%s/200/200", f.faker.UUID()),
		Bio:      clip(f.faker.HipsterSentence(8), 200),
		Location: f.faker.City(),
	}
	u.ApplyProfileDefaults()
	return u
}

// Users creates n users.
func (f *Factory) Users(n int) ([]models.User, error) {
	if n <= 0 {
		return nil, nil
	}
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, *f.BuildUser())
	}
	if err := f.db.CreateInBatches(&users, 100).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// BuildMessage returns an unsaved message by author, spread over the last month.
func (f *Factory) BuildMessage(author models.User) *models.Message {
	ago := time.Duration(f.rnd.Int63n(int64(30 * 24 * time.Hour)))
	return &models.Message{
		Text:      clip(f.faker.Sentence(f.rnd.Intn(15)+3), models.MaxMessageLength),
		Timestamp: time.Now().UTC().Add(-ago),
		UserID:    author.ID,
	}
}

// Messages creates perUser messages for each user.
func (f *Factory) Messages(users []models.User, perUser int) ([]models.Message, error) {
	if perUser <= 0 || len(users) == 0 {
		return nil, nil
	}
	msgs := make([]models.Message, 0, len(users)*perUser)
	for _, u := range users {
		for i := 0; i < perUser; i++ {
			msgs = append(msgs, *f.BuildMessage(u))
		}
	}
	if err := f.db.Omit("User").CreateInBatches(&msgs, 200).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// Follows gives each user up to perUser distinct followees, never themselves.
func (f *Factory) Follows(users []models.User, perUser int) (int, error) {
	if perUser <= 0 || len(users) < 2 {
		return 0, nil
	}
	var edges []models.Follow
	for _, u := range users {
		for _, idx := range f.pick(len(users), perUser, indexOf(users, u.ID)) {
			edges = append(edges, models.Follow{FollowerID: u.ID, FolloweeID: users[idx].ID})
		}
	}
	if err := f.db.CreateInBatches(&edges, 200).Error; err != nil {
		return 0, err
	}
	return len(edges), nil
}

// Likes has each user like up to perUser distinct messages written by others.
func (f *Factory) Likes(users []models.User, msgs []models.Message, perUser int) (int, error) {
	if perUser <= 0 || len(msgs) == 0 {
		return 0, nil
	}
	var likes []models.Like
	for _, u := range users {
		var candidates []models.Message
		for _, m := range msgs {
			if m.UserID != u.ID {
				candidates = append(candidates, m)
			}
		}
		for _, idx := range f.pick(len(candidates), perUser, -1) {
			likes = append(likes, models.Like{UserID: u.ID, MessageID: candidates[idx].ID})
		}
	}
	if len(likes) == 0 {
		return 0, nil
	}
	if err := f.db.CreateInBatches(&likes, 200).Error; err != nil {
		return 0, err
	}
	return len(likes), nil
}

// pick returns up to k distinct indexes in [0,n), excluding skip.
func (f *Factory) pick(n, k, skip int) []int {
	perm := f.rnd.Perm(n)
	out := make([]int, 0, k)
	for _, idx := range perm {
		if len(out) == k {
			break
		}
		if idx != skip {
			out = append(out, idx)
		}
	}
	return out
}

func indexOf(users []models.User, id uint) int {
	for i, u := range users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

// clip truncates s to at most n characters.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
