package library

import (
	"strconv"
	"strings"

	"library-client/application/util/rule"

	"github.com/pkg/errors"
)

var ErrInvalidNumber = errors.New("value must be a non-negative integer")

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Book struct {
	ID        int    `json:"id,omitempty"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Genre     string `json:"genre,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
}

// BookForm holds a book as typed in by the user.
type BookForm struct {
	Title     string
	Author    string
	Genre     string
	Publisher string
	PageCount string
}

// Book validates the form and converts it into a Book.
func (f BookForm) Book() (Book, error) {
	pageCount, err := ParseNumber("page count", f.PageCount)
	if err != nil {
		return Book{}, err
	}

	return Book{
		Title:     f.Title,
		Author:    f.Author,
		Genre:     f.Genre,
		Publisher: f.Publisher,
		PageCount: pageCount,
	}, nil
}

// ParseNumber accepts only ASCII digits, after trimming surrounding whitespace.
func ParseNumber(field, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Wrapf(ErrInvalidNumber, "%s is empty", field)
	}
	for i := 0; i < len(s); i++ {
		if !rule.IsDigit(s[i]) {
			return 0, errors.Wrapf(ErrInvalidNumber, "%s %q", field, s)
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidNumber, "%s %q is out of range", field, s)
	}
	return n, nil
}
