package controller

import (
	"net/http"

	"scanndine/apperr"
	"scanndine/auth"
	"scanndine/model"
	"scanndine/service"
	"scanndine/utils"

	"github.com/gin-gonic/gin"
)

type CategoryController struct {
	menu *service.MenuService
}

func NewCategoryController(menu *service.MenuService) *CategoryController {
	return &CategoryController{menu: menu}
}

type categoryRequest struct {
	Name         string `json:"name" form:"name"`
	DisplayOrder *int   `json:"displayOrder" form:"displayOrder"`
	Active       *bool  `json:"active" form:"active"`
}

func (r categoryRequest) input() service.CategoryInput {
	return service.CategoryInput{Name: r.Name, DisplayOrder: r.DisplayOrder, Active: r.Active}
}

// List returns active categories. Admins may pass all=true to see inactive
// ones as well.
func (cc *CategoryController) List(c *gin.Context) {
	all := c.Query("all") == "true" && auth.FromGin(c).HasRole(model.RoleAdmin)
	categories, err := cc.menu.Categories(c.Request.Context(), all)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Categories", categories)
}

func (cc *CategoryController) Create(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, apperr.Validation("invalid request body"))
		return
	}
	category, err := cc.menu.CreateCategory(c.Request.Context(), req.input())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Category added successfully", category)
}

func (cc *CategoryController) Update(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req categoryRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, apperr.Validation("invalid request body"))
		return
	}
	category, err := cc.menu.UpdateCategory(c.Request.Context(), id, req.input())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Category updated successfully", category)
}

func (cc *CategoryController) Delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := cc.menu.DeleteCategory(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Category deleted successfully", nil)
}
