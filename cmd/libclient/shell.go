package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"library-client/application/library"

	"github.com/pkg/errors"
)

type shell struct {
	client *library.Client

	in  *bufio.Scanner
	out io.Writer
}

func newShell(client *library.Client, in io.Reader, out io.Writer) *shell {
	return &shell{client: client, in: bufio.NewScanner(in), out: out}
}

// run executes commands until "exit" or the end of input.
func (sh *shell) run(ctx context.Context) error {
	for sh.in.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		cmd, ok := library.ParseCommand(sh.in.Text())
		if !ok {
			sh.println("INVALID REQUEST SEND!")
			continue
		}
		if cmd == library.CommandExit {
			return nil
		}

		if err := sh.execute(ctx, cmd); err != nil {
			sh.printErr(err)
		}
	}
	return sh.in.Err()
}

func (sh *shell) execute(ctx context.Context, cmd library.Command) error {
	switch cmd {
	case library.CommandRegister:
		creds, err := sh.credentials()
		if err != nil {
			return err
		}
		status, err := sh.client.Register(ctx, creds)
		if err != nil {
			return err
		}
		sh.println("SUCCESS: " + status + " - User registered successfully.")

	case library.CommandLogin:
		creds, err := sh.credentials()
		if err != nil {
			return err
		}
		status, err := sh.client.Login(ctx, creds)
		if err != nil {
			return err
		}
		sh.println("SUCCESS: " + status + " - Logged in successfully.")

	case library.CommandLogout:
		status, err := sh.client.Logout(ctx)
		if err != nil {
			return err
		}
		sh.println("SUCCESS: " + status + " - Logged out successfully.")

	case library.CommandEnterLibrary:
		status, err := sh.client.EnterLibrary(ctx)
		if err != nil {
			return err
		}
		sh.println("SUCCESS: " + status + " - Entered the library successfully.")

	case library.CommandGetBooks:
		books, err := sh.client.GetBooks(ctx)
		if err != nil {
			return err
		}
		if len(books) == 0 {
			sh.println("No books available in the library.")
			return nil
		}
		sh.println("List of books:")
		for _, book := range books {
			sh.println(fmt.Sprintf("- ID: %d, Title: %s", book.ID, book.Title))
		}

	case library.CommandGetBook:
		id, err := sh.prompt("Enter the book ID: ")
		if err != nil {
			return err
		}
		book, err := sh.client.GetBook(ctx, id)
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(book, "", "    ")
		if err != nil {
			return errors.Wrap(err, "formatting book")
		}
		sh.println("Book details: " + string(b))

	case library.CommandAddBook:
		form, err := sh.bookForm()
		if err != nil {
			return err
		}
		book, err := form.Book()
		if err != nil {
			return err
		}
		status, err := sh.client.AddBook(ctx, book)
		if err != nil {
			return err
		}
		sh.println("SUCCESS: " + status + " - Book successfully added.")

	case library.CommandDeleteBook:
		id, err := sh.prompt("Enter the book ID: ")
		if err != nil {
			return err
		}
		status, err := sh.client.DeleteBook(ctx, id)
		if err != nil {
			return err
		}
		sh.println("SUCCESS: " + status + " - Book successfully deleted.")
	}

	return nil
}

func (sh *shell) credentials() (library.Credentials, error) {
	username, err := sh.prompt("Enter username: ")
	if err != nil {
		return library.Credentials{}, err
	}
	password, err := sh.prompt("Enter password: ")
	if err != nil {
		return library.Credentials{}, err
	}
	return library.Credentials{Username: username, Password: password}, nil
}

func (sh *shell) bookForm() (library.BookForm, error) {
	var form library.BookForm
	fields := []struct {
		label string
		dst   *string
	}{
		{"title=", &form.Title},
		{"author=", &form.Author},
		{"genre=", &form.Genre},
		{"page_count=", &form.PageCount},
		{"publisher=", &form.Publisher},
	}

	for _, field := range fields {
		value, err := sh.prompt(field.label)
		if err != nil {
			return library.BookForm{}, err
		}
		*field.dst = value
	}
	return form, nil
}

// prompt returns the next non-blank line, trimmed.
func (sh *shell) prompt(label string) (string, error) {
	fmt.Fprint(sh.out, label)
	for sh.in.Scan() {
		if line := strings.TrimSpace(sh.in.Text()); line != "" {
			return line, nil
		}
	}
	if err := sh.in.Err(); err != nil {
		return "", err
	}
	return "", io.ErrUnexpectedEOF
}

func (sh *shell) println(line string) { fmt.Fprintln(sh.out, line) }

func (sh *shell) printErr(err error) {
	var serverErr *library.ServerError
	if errors.As(err, &serverErr) {
		sh.println("ERROR: " + serverErr.Error())
		return
	}
	sh.println("ERROR: " + err.Error())
}
