package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"scanndine/apperr"
	"scanndine/model"
	"scanndine/repository"

	"github.com/sirupsen/logrus"
)

// QRRenderer turns a URL into an image payload such as a data URI.
type QRRenderer func(content string) (string, error)

type TableService struct {
	tables      *repository.TableRepository
	render      QRRenderer
	frontendURL string
	log         logrus.FieldLogger
}

func NewTableService(tables *repository.TableRepository, render QRRenderer, frontendURL string, log logrus.FieldLogger) *TableService {
	return &TableService{
		tables:      tables,
		render:      render,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

func tableNotFound() *apperr.Error {
	return apperr.NotFound(apperr.CodeTableNotFound, "table not found")
}

// ParseTableReference accepts a bare table number ("7") or its slug
// ("table-7") and returns the number.
func ParseTableReference(ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if len(ref) > len("table-") && strings.EqualFold(ref[:len("table-")], "table-") {
		ref = ref[len("table-"):]
	}
	n, err := strconv.Atoi(ref)
	if err != nil || n < 1 {
		return 0, apperr.Validationf("invalid table reference %q", ref)
	}
	return n, nil
}

// Resolve finds the table behind a number or slug reference.
func (s *TableService) Resolve(ctx context.Context, ref string) (*model.Table, error) {
	n, err := ParseTableReference(ref)
	if err != nil {
		return nil, err
	}
	table, err := s.tables.FindByNumber(ctx, n)
	if err != nil {
		return nil, notFound(err, tableNotFound())
	}
	return table, nil
}

func (s *TableService) List(ctx context.Context) ([]model.Table, error) {
	return s.tables.List(ctx)
}

// Create registers a table; its slug is always "table-{number}".
func (s *TableService) Create(ctx context.Context, number int) (*model.Table, error) {
	if number < 1 {
		return nil, apperr.Validation("table number must be a positive integer")
	}
	table := &model.Table{Number: number, QRSlug: model.TableSlug(number)}
	if err := s.tables.Create(ctx, table); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(apperr.CodeDuplicateTable, fmt.Sprintf("table %d already exists", number))
		}
		return nil, err
	}
	s.log.WithField("number", number).Info("table created")
	return table, nil
}

func (s *TableService) Delete(ctx context.Context, id uint) error {
	return notFound(s.tables.Delete(ctx, id), tableNotFound())
}

func (s *TableService) BySlug(ctx context.Context, slug string) (*model.Table, error) {
	table, err := s.tables.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, tableNotFound())
	}
	return table, nil
}

// MenuURL is the address a table's QR code points at.
func (s *TableService) MenuURL(slug string) string {
	return s.frontendURL + "/menu?table=" + url.QueryEscape(slug)
}

// GenerateQR renders the table's QR code and stores it, replacing any
// earlier payload.
func (s *TableService) GenerateQR(ctx context.Context, id uint) (*model.Table, error) {
	table, err := s.tables.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, tableNotFound())
	}
	link := s.MenuURL(table.QRSlug)
	data, err := s.render(link)
	if err != nil {
		return nil, apperr.Upstream("render qr", err)
	}
	if err := s.tables.SaveQR(ctx, id, data, link); err != nil {
		return nil, notFound(err, tableNotFound())
	}
	table.QRData = &data
	table.QRURL = &link
	return table, nil
}
