package grpcserver

import (
	"context"
	"io"
	"log"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"epubhub/internal/auth"
	"epubhub/internal/catalog"
	"epubhub/internal/epubtest"
)

func startServer(t *testing.T) (*Client, string) {
	t.Helper()
	dir := t.TempDir()
	epubtest.Write(t, dir, "Dune.epub", epubtest.Book{Title: "Dune", Creator: "Frank Herbert"})
	epubtest.Write(t, dir, "Emma.epub", epubtest.Book{Title: "Emma", Creator: "Jane Austen"})
	epubtest.Write(t, dir, "Ubik.epub", epubtest.Book{Title: "Ubik", Creator: "Philip K. Dick"})

	quiet := log.New(io.Discard, "", 0)
	svc := catalog.NewService(catalog.Config{Dir: dir, Logger: quiet})
	tokens := auth.TokenService{Secret: []byte("grpc-secret"), Issuer: "epubhub", Duration: time.Hour}

	lis := bufconn.Listen(1 << 20)
	gs := New(NewServer(svc), auth.Verifier{Tokens: tokens}, quiet)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	token, _, err := tokens.Sign(&auth.User{ID: "u1", Email: "a@b.c", Role: auth.RoleUser})
	if err != nil {
		t.Fatal(err)
	}
	return NewClient(conn), token
}

func withToken(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestListBooks(t *testing.T) {
	client, token := startServer(t)

	res, err := client.ListBooks(withToken(token), &ListBooksRequest{Limit: 2, Sort: "author", Order: "desc"})
	if err != nil {
		t.Fatalf("ListBooks() error = %v", err)
	}
	if res.TotalItems != 3 || res.TotalPages != 2 || res.CurrentPage != 1 {
		t.Errorf("meta = %+v", res)
	}
	// Page scope: the first two files are sorted among themselves.
	if len(res.Books) != 2 || res.Books[0].Author != "Jane Austen" || res.Books[1].Author != "Frank Herbert" {
		t.Errorf("books = %+v", res.Books)
	}
}

func TestListBooks_InvalidArgument(t *testing.T) {
	client, token := startServer(t)
	_, err := client.ListBooks(withToken(token), &ListBooksRequest{Limit: 500})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestGetBook(t *testing.T) {
	client, token := startServer(t)

	res, err := client.GetBook(withToken(token), &GetBookRequest{Title: "ubik"})
	if err != nil {
		t.Fatalf("GetBook() error = %v", err)
	}
	if res.Book.Title != "Ubik" || res.Book.Cover != nil {
		t.Errorf("book = %+v", res.Book)
	}

	_, err = client.GetBook(withToken(token), &GetBookRequest{Title: "Solaris"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("code = %v, want NotFound", status.Code(err))
	}
	_, err = client.GetBook(withToken(token), &GetBookRequest{})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestAuthInterceptor(t *testing.T) {
	client, _ := startServer(t)

	_, err := client.ListBooks(context.Background(), &ListBooksRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("no token: code = %v, want Unauthenticated", status.Code(err))
	}
	_, err = client.ListBooks(withToken("forged"), &ListBooksRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("bad token: code = %v, want Unauthenticated", status.Code(err))
	}
}
