package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"scanndine/apperr"
	"scanndine/model"
	"scanndine/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ImageStore keeps uploaded item images. *utils.ImageStore satisfies it.
type ImageStore interface {
	Save(file *multipart.FileHeader) (string, error)
	Delete(url string) error
}

type MenuService struct {
	menu   *repository.MenuRepository
	images ImageStore
	log    logrus.FieldLogger
}

func NewMenuService(menu *repository.MenuRepository, images ImageStore, log logrus.FieldLogger) *MenuService {
	return &MenuService{menu: menu, images: images, log: log}
}

func categoryNotFound() *apperr.Error {
	return apperr.NotFound(apperr.CodeCategoryNotFound, "category not found")
}

func menuItemNotFound(id uint) *apperr.Error {
	return apperr.NotFound(apperr.CodeMenuItemNotFound, fmt.Sprintf("menu item %d not found", id))
}

func (s *MenuService) Categories(ctx context.Context, includeInactive bool) ([]model.MenuCategory, error) {
	return s.menu.ListCategories(ctx, includeInactive)
}

type CategoryInput struct {
	Name         string
	DisplayOrder *int
	Active       *bool
}

func (s *MenuService) CreateCategory(ctx context.Context, in CategoryInput) (*model.MenuCategory, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("category name is required")
	}
	category := &model.MenuCategory{Name: name, Active: true}
	if in.DisplayOrder != nil {
		category.DisplayOrder = *in.DisplayOrder
	}
	if in.Active != nil {
		category.Active = *in.Active
	}
	if err := s.menu.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *MenuService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*model.MenuCategory, error) {
	category, err := s.menu.FindCategory(ctx, id)
	if err != nil {
		return nil, notFound(err, categoryNotFound())
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		category.Name = name
	}
	if in.DisplayOrder != nil {
		category.DisplayOrder = *in.DisplayOrder
	}
	if in.Active != nil {
		category.Active = *in.Active
	}
	if err := s.menu.SaveCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory refuses while any item still points at the category.
func (s *MenuService) DeleteCategory(ctx context.Context, id uint) error {
	if _, err := s.menu.FindCategory(ctx, id); err != nil {
		return notFound(err, categoryNotFound())
	}
	n, err := s.menu.CountItemsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict(apperr.CodeCategoryInUse, fmt.Sprintf("category still has %d items", n))
	}
	return notFound(s.menu.DeleteCategory(ctx, id), categoryNotFound())
}

type ItemQuery struct {
	Search        string
	CategoryID    uint
	Sort          string
	Page          int
	Limit         int
	IncludeHidden bool
}

func (s *MenuService) Items(ctx context.Context, q ItemQuery) ([]model.MenuItem, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	return s.menu.ListItems(ctx, repository.ItemFilter{
		Search:        q.Search,
		CategoryID:    q.CategoryID,
		SortByPrice:   q.Sort == "price",
		IncludeHidden: q.IncludeHidden,
		Limit:         q.Limit,
		Offset:        (q.Page - 1) * q.Limit,
	})
}

func (s *MenuService) Item(ctx context.Context, id uint) (*model.MenuItem, error) {
	item, err := s.menu.FindItem(ctx, id)
	if err != nil {
		return nil, notFound(err, menuItemNotFound(id))
	}
	return item, nil
}

// ItemInput is a create or partial update. Nil fields are left unchanged on
// update; on create Name, Price and CategoryID are required.
type ItemInput struct {
	Name         *string
	Description  *string
	Price        *string
	CategoryID   *uint
	ImageURL     *string
	Availability *bool
	Tags         []string
	Image        *multipart.FileHeader
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperr.Validation("invalid price")
	}
	if price.IsNegative() {
		return decimal.Zero, apperr.Validation("price must not be negative")
	}
	return price.Round(2), nil
}

func cleanTags(tags []string) datatypes.JSONSlice[string] {
	out := datatypes.JSONSlice[string]{}
	seen := make(map[string]bool)
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}

// apply copies the set fields of in onto item.
func (s *MenuService) apply(ctx context.Context, item *model.MenuItem, in ItemInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperr.Validation("item name is required")
		}
		item.Name = name
	}
	if in.Description != nil {
		item.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		price, err := parsePrice(*in.Price)
		if err != nil {
			return err
		}
		item.Price = price
	}
	if in.CategoryID != nil {
		if _, err := s.menu.FindCategory(ctx, *in.CategoryID); err != nil {
			return notFound(err, categoryNotFound())
		}
		item.CategoryID = *in.CategoryID
	}
	if in.ImageURL != nil {
		item.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.Availability != nil {
		item.Availability = *in.Availability
	}
	if in.Tags != nil {
		item.Tags = cleanTags(in.Tags)
	}
	return nil
}

func (s *MenuService) CreateItem(ctx context.Context, in ItemInput) (*model.MenuItem, error) {
	if in.Name == nil || in.Price == nil || in.CategoryID == nil {
		return nil, apperr.Validation("name, price and categoryId are required")
	}
	item := &model.MenuItem{Availability: true, Tags: datatypes.JSONSlice[string]{}}
	if err := s.apply(ctx, item, in); err != nil {
		return nil, err
	}
	if in.Image != nil {
		url, err := s.images.Save(in.Image)
		if err != nil {
			return nil, err
		}
		item.ImageURL = url
	}
	if err := s.menu.CreateItem(ctx, item); err != nil {
		if in.Image != nil {
			s.discardImage(item.ImageURL, 0)
		}
		return nil, err
	}
	return s.Item(ctx, item.ID)
}

// UpdateItem applies a partial update. A new upload replaces the stored
// image and the old file is removed.
func (s *MenuService) UpdateItem(ctx context.Context, id uint, in ItemInput) (*model.MenuItem, error) {
	item, err := s.menu.FindItem(ctx, id)
	if err != nil {
		return nil, notFound(err, menuItemNotFound(id))
	}
	oldImage := item.ImageURL
	if err := s.apply(ctx, item, in); err != nil {
		return nil, err
	}
	if in.Image != nil {
		url, err := s.images.Save(in.Image)
		if err != nil {
			return nil, err
		}
		item.ImageURL = url
	}
	item.Category = nil
	if err := s.menu.SaveItem(ctx, item); err != nil {
		if in.Image != nil {
			s.discardImage(item.ImageURL, id)
		}
		return nil, err
	}
	if oldImage != "" && oldImage != item.ImageURL {
		s.discardImage(oldImage, id)
	}
	return s.Item(ctx, id)
}

// discardImage removes a stored image, logging rather than failing when the
// file cannot be removed.
func (s *MenuService) discardImage(url string, itemID uint) {
	if url == "" {
		return
	}
	if err := s.images.Delete(url); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"item_id": itemID, "image": url}).Warn("image not removed")
	}
}

func (s *MenuService) SetAvailability(ctx context.Context, id uint, available bool) (*model.MenuItem, error) {
	if err := s.menu.SetAvailability(ctx, id, available); err != nil {
		return nil, notFound(err, menuItemNotFound(id))
	}
	return s.Item(ctx, id)
}

func (s *MenuService) DeleteItem(ctx context.Context, id uint) error {
	item, err := s.menu.FindItem(ctx, id)
	if err != nil {
		return notFound(err, menuItemNotFound(id))
	}
	if err := s.menu.DeleteItem(ctx, id); err != nil {
		return notFound(err, menuItemNotFound(id))
	}
	s.discardImage(item.ImageURL, id)
	return nil
}

// ImportIssue explains why a spreadsheet row was skipped.
type ImportIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Created int           `json:"created"`
	Skipped []ImportIssue `json:"skipped"`
}

// ImportItems reads menu items from the first sheet of an xlsx workbook.
// The first row is a header; columns are category (id or name), price,
// name, description, tags (comma separated) and availability.
func (s *MenuService) ImportItems(ctx context.Context, r io.Reader) (*ImportResult, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("failed to parse Excel file")
	}
	defer xl.Close()

	rows, err := xl.GetRows(xl.GetSheetName(0))
	if err != nil || len(rows) < 2 {
		return nil, apperr.Validation("Excel must have at least one row of data")
	}

	categories, err := s.menu.ListCategories(ctx, true)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]bool, len(categories))
	byName := make(map[string]uint, len(categories))
	for _, c := range categories {
		byID[c.ID] = true
		byName[strings.ToLower(c.Name)] = c.ID
	}

	result := &ImportResult{Skipped: []ImportIssue{}}
	var items []model.MenuItem
	for i, row := range rows[1:] {
		rowNum := i + 2
		cell := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}
		skip := func(reason string) {
			result.Skipped = append(result.Skipped, ImportIssue{Row: rowNum, Reason: reason})
		}

		if cell(0) == "" && cell(2) == "" {
			continue
		}
		var categoryID uint
		if id, err := strconv.ParseUint(cell(0), 10, 32); err == nil && byID[uint(id)] {
			categoryID = uint(id)
		} else if id, ok := byName[strings.ToLower(cell(0))]; ok {
			categoryID = id
		} else {
			skip("unknown category " + cell(0))
			continue
		}
		price, err := parsePrice(cell(1))
		if err != nil {
			skip("invalid price " + cell(1))
			continue
		}
		if cell(2) == "" {
			skip("name is empty")
			continue
		}
		available := true
		if v := cell(5); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				available = b
			}
		}
		items = append(items, model.MenuItem{
			Name:         cell(2),
			Description:  cell(3),
			Price:        price,
			CategoryID:   categoryID,
			Availability: available,
			Tags:         cleanTags(strings.Split(cell(4), ",")),
		})
	}

	if len(items) == 0 {
		return nil, apperr.Validation("no valid rows found")
	}
	if err := s.menu.CreateItems(ctx, items); err != nil {
		return nil, err
	}
	result.Created = len(items)
	s.log.WithFields(logrus.Fields{"created": result.Created, "skipped": len(result.Skipped)}).Info("menu items imported")
	return result, nil
}
