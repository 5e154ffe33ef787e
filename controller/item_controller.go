package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"scanndine/apperr"
	"scanndine/auth"
	"scanndine/model"
	"scanndine/service"
	"scanndine/utils"

	"github.com/gin-gonic/gin"
)

type ItemController struct {
	menu *service.MenuService
}

func NewItemController(menu *service.MenuService) *ItemController {
	return &ItemController{menu: menu}
}

// List supports search, category, sort=price|name, page and limit. Admins
// may pass all=true to include unavailable items.
func (ic *ItemController) List(c *gin.Context) {
	var categoryID uint
	if raw := c.Query("category"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.RespondError(c, apperr.Validation("invalid category"))
			return
		}
		categoryID = uint(id)
	}

	items, err := ic.menu.Items(c.Request.Context(), service.ItemQuery{
		Search:        c.Query("search"),
		CategoryID:    categoryID,
		Sort:          c.Query("sort"),
		Page:          queryInt(c, "page", 1),
		Limit:         queryInt(c, "limit", 10),
		IncludeHidden: c.Query("all") == "true" && auth.FromGin(c).HasRole(model.RoleAdmin),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Menu items", items)
}

func (ic *ItemController) Get(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	item, err := ic.menu.Item(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Menu item", item)
}

type itemJSON struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Price        any      `json:"price"`
	CategoryID   *uint    `json:"categoryId"`
	ImageURL     *string  `json:"imageUrl"`
	Availability *bool    `json:"availability"`
	Tags         []string `json:"tags"`
}

// itemInput reads an item from a multipart form (with optional "image"
// upload) or from a JSON body.
func itemInput(c *gin.Context) (service.ItemInput, error) {
	var in service.ItemInput
	if c.ContentType() == gin.MIMEJSON {
		var raw itemJSON
		if err := c.ShouldBindJSON(&raw); err != nil {
			return in, apperr.Validation("invalid request body")
		}
		in = service.ItemInput{
			Name:         raw.Name,
			Description:  raw.Description,
			CategoryID:   raw.CategoryID,
			ImageURL:     raw.ImageURL,
			Availability: raw.Availability,
			Tags:         raw.Tags,
		}
		if raw.Price != nil {
			p := strings.TrimSpace(fmt.Sprint(raw.Price))
			in.Price = &p
		}
		return in, nil
	}

	if v, ok := c.GetPostForm("name"); ok {
		in.Name = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		in.Description = &v
	}
	if v, ok := c.GetPostForm("price"); ok {
		in.Price = &v
	}
	if v, ok := c.GetPostForm("categoryId"); ok {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return in, apperr.Validation("invalid category ID format")
		}
		cid := uint(id)
		in.CategoryID = &cid
	}
	if v, ok := c.GetPostForm("imageUrl"); ok {
		in.ImageURL = &v
	}
	if v, ok := c.GetPostForm("availability"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return in, apperr.Validation("invalid availability")
		}
		in.Availability = &b
	}
	if vs, ok := c.GetPostFormArray("tags"); ok {
		in.Tags = []string{}
		for _, v := range vs {
			in.Tags = append(in.Tags, strings.Split(v, ",")...)
		}
	}
	if file, err := c.FormFile("image"); err == nil {
		in.Image = file
	}
	return in, nil
}

func (ic *ItemController) Create(c *gin.Context) {
	in, err := itemInput(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	item, err := ic.menu.CreateItem(c.Request.Context(), in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Menu item added successfully", item)
}

func (ic *ItemController) Update(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	in, err := itemInput(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	item, err := ic.menu.UpdateItem(c.Request.Context(), id, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Menu item updated successfully", item)
}

func (ic *ItemController) SetAvailability(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req struct {
		Availability *bool `json:"availability" form:"availability"`
	}
	if err := c.ShouldBind(&req); err != nil || req.Availability == nil {
		utils.RespondError(c, apperr.Validation("availability is required"))
		return
	}
	item, err := ic.menu.SetAvailability(c.Request.Context(), id, *req.Availability)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Availability updated", item)
}

func (ic *ItemController) Delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := ic.menu.DeleteItem(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Menu item deleted successfully", nil)
}

// Import bulk-creates items from an uploaded xlsx file.
func (ic *ItemController) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondError(c, apperr.Validation("Excel file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		utils.RespondError(c, apperr.Validation("unable to open Excel file"))
		return
	}
	defer file.Close()

	res, err := ic.menu.ImportItems(c.Request.Context(), file)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Bulk menu upload successful", res)
}
