package playground

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

// User mirrors the shape of a public dummy users API.
type User struct {
	ID        int    `yaml:"id" json:"id"`
	FirstName string `yaml:"firstName" json:"firstName"`
	LastName  string `yaml:"lastName" json:"lastName"`
	Age       int    `yaml:"age" json:"age"`
	Gender    string `yaml:"gender" json:"gender"`
	Email     string `yaml:"email" json:"email"`
	Username  string `yaml:"username" json:"username"`
	Password  string `yaml:"password" json:"-"`
}

// Film is one row of the Oscars table.
type Film struct {
	Year        int    `yaml:"year" json:"year"`
	Title       string `yaml:"title" json:"title"`
	Nominations int    `yaml:"nominations" json:"nominations"`
	Awards      int    `yaml:"awards" json:"awards"`
	BestPicture bool   `yaml:"bestPicture" json:"best_picture"`
}

// DocPage is a searchable documentation entry.
type DocPage struct {
	Slug    string `yaml:"slug" json:"slug"`
	Title   string `yaml:"title" json:"title"`
	Snippet string `yaml:"snippet" json:"snippet"`
}

// Fixtures is the seeded data behind the site.
type Fixtures struct {
	Users []User    `yaml:"users"`
	Films []Film    `yaml:"films"`
	Docs  []DocPage `yaml:"docs"`
}

// LoadFixtures decodes the embedded fixture file.
func LoadFixtures() (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(fixturesYAML, &f); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}
	sort.Slice(f.Users, func(i, j int) bool { return f.Users[i].ID < f.Users[j].ID })
	return &f, nil
}

// User returns the user with id.
func (f *Fixtures) User(id int) (User, bool) {
	for _, u := range f.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// UserByEmail returns the user with the given email, ignoring case.
func (f *Fixtures) UserByEmail(email string) (User, bool) {
	for _, u := range f.Users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, true
		}
	}
	return User{}, false
}

// SearchUsers matches q against first name, last name and username.
func (f *Fixtures) SearchUsers(q string) []User {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []User{}
	for _, u := range f.Users {
		if q == "" ||
			strings.Contains(strings.ToLower(u.FirstName), q) ||
			strings.Contains(strings.ToLower(u.LastName), q) ||
			strings.Contains(strings.ToLower(u.Username), q) {
			out = append(out, u)
		}
	}
	return out
}

// FilmsFor returns the films of one ceremony year.
func (f *Fixtures) FilmsFor(year int) []Film {
	out := []Film{}
	for _, film := range f.Films {
		if film.Year == year {
			out = append(out, film)
		}
	}
	return out
}

// Years lists ceremony years in ascending order.
func (f *Fixtures) Years() []int {
	seen := map[int]bool{}
	var years []int
	for _, film := range f.Films {
		if !seen[film.Year] {
			seen[film.Year] = true
			years = append(years, film.Year)
		}
	}
	sort.Ints(years)
	return years
}

// Doc returns the documentation page with slug.
func (f *Fixtures) Doc(slug string) (DocPage, bool) {
	for _, d := range f.Docs {
		if d.Slug == slug {
			return d, true
		}
	}
	return DocPage{}, false
}

// SearchDocs matches q against titles and snippets.
func (f *Fixtures) SearchDocs(q string) []DocPage {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []DocPage{}
	if q == "" {
		return out
	}
	for _, d := range f.Docs {
		if strings.Contains(strings.ToLower(d.Title), q) || strings.Contains(strings.ToLower(d.Snippet), q) {
			out = append(out, d)
		}
	}
	return out
}
