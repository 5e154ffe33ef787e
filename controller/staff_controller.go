package controller

import (
	"net/http"

	"scanndine/apperr"
	"scanndine/auth"
	"scanndine/service"
	"scanndine/utils"

	"github.com/gin-gonic/gin"
)

type StaffController struct {
	staff *service.StaffService
}

func NewStaffController(staff *service.StaffService) *StaffController {
	return &StaffController{staff: staff}
}

func (sc *StaffController) Pending(c *gin.Context) {
	users, err := sc.staff.PendingStaff(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Pending staff", users)
}

func (sc *StaffController) AllStaff(c *gin.Context) {
	users, err := sc.staff.ApprovedStaff(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Approved staff", users)
}

func (sc *StaffController) Approve(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	user, err := sc.staff.Approve(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Staff approved", user)
}

func (sc *StaffController) Reject(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := sc.staff.Reject(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Staff rejected", nil)
}

func (sc *StaffController) Remove(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := sc.staff.Remove(c.Request.Context(), auth.FromGin(c), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Staff removed", nil)
}

// RemoveSelf deletes the calling staff member's own account.
func (sc *StaffController) RemoveSelf(c *gin.Context) {
	me := auth.FromGin(c)
	if err := sc.staff.Remove(c.Request.Context(), me, me.UserID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Account deleted", nil)
}

type addStaffRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (sc *StaffController) Add(c *gin.Context) {
	var req addStaffRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, apperr.Validation("invalid request body"))
		return
	}
	user, err := sc.staff.AddStaff(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Staff added", user)
}

func (sc *StaffController) Details(c *gin.Context) {
	user, err := sc.staff.Profile(c.Request.Context(), auth.FromGin(c).UserID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Profile", user)
}

func (sc *StaffController) UpdateDetails(c *gin.Context) {
	var req addStaffRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, apperr.Validation("invalid request body"))
		return
	}
	user, err := sc.staff.UpdateProfile(c.Request.Context(), auth.FromGin(c).UserID, service.ProfileUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Profile updated", user)
}

func (sc *StaffController) SendQuery(c *gin.Context) {
	var req struct {
		Message string `json:"message" form:"message"`
	}
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, apperr.Validation("invalid request body"))
		return
	}
	q, err := sc.staff.SendQuery(c.Request.Context(), auth.FromGin(c).UserID, req.Message)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Query sent successfully", q)
}

func (sc *StaffController) Queries(c *gin.Context) {
	queries, err := sc.staff.Queries(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Queries", queries)
}

func (sc *StaffController) ResolveQuery(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := sc.staff.ResolveQuery(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Query resolved", nil)
}

func (sc *StaffController) DeleteQuery(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := sc.staff.DeleteQuery(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Query deleted", nil)
}
