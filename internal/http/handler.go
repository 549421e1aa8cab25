package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/renolink/bids-service/internal/http/middleware"
	"github.com/renolink/bids-service/internal/model"
	"github.com/renolink/bids-service/internal/service"
)

type Handler struct {
	bids *service.BidService
	log  zerolog.Logger
}

func NewHandler(bids *service.BidService, log zerolog.Logger) *Handler {
	return &Handler{bids: bids, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/bids", h.createBid)
	protected.GET("/bids", h.listOwnBids)
	protected.GET("/bids/:id", h.getBid)
	protected.PATCH("/bids/:id", h.updateBid)
	protected.POST("/bids/:id/withdraw", h.withdrawBid)
	protected.POST("/bids/:id/approve", h.approveBid)
	protected.POST("/bids/:id/reject", h.rejectBid)

	protected.GET("/projects/:id/bids", h.listProjectBids)
	protected.GET("/admin/projects/:id/bids", h.adminListProjectBids)
	protected.GET("/admin/projects/:id/bids/export", h.adminExportProjectBids)
}

type attachmentPayload struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type createBidRequest struct {
	ProjectID   string              `json:"projectId" binding:"required"`
	Price       float64             `json:"price" binding:"required,gt=0"`
	Timeline    string              `json:"timeline" binding:"required"`
	Proposal    string              `json:"proposal" binding:"required"`
	Attachments []attachmentPayload `json:"attachments"`
}

func (h *Handler) createBid(c *gin.Context) {
	principal, ok := contractorPrincipal(c)
	if !ok {
		return
	}

	var req createBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	projectID, err := uuid.Parse(strings.TrimSpace(req.ProjectID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid projectId"})
		return
	}

	bid, err := h.bids.Create(c.Request.Context(), service.CreateBidInput{
		ContractorID: principal.UserID,
		ProjectID:    projectID,
		Price:        req.Price,
		Timeline:     req.Timeline,
		Proposal:     req.Proposal,
		Attachments:  toAttachments(req.Attachments),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBidResponse(bid))
}

type updateBidRequest struct {
	Price       *float64             `json:"price" binding:"omitempty,gt=0"`
	Timeline    *string              `json:"timeline"`
	Proposal    *string              `json:"proposal"`
	Attachments *[]attachmentPayload `json:"attachments"`
}

func (h *Handler) updateBid(c *gin.Context) {
	principal, ok := contractorPrincipal(c)
	if !ok {
		return
	}
	bidID, ok := pathID(c)
	if !ok {
		return
	}

	var req updateBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := model.BidTermsUpdate{
		Price:    req.Price,
		Timeline: req.Timeline,
		Proposal: req.Proposal,
	}
	if req.Attachments != nil {
		attachments := toAttachments(*req.Attachments)
		update.Attachments = &attachments
	}

	bid, err := h.bids.Update(c.Request.Context(), bidID, principal.UserID, update)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBidResponse(bid))
}

func (h *Handler) withdrawBid(c *gin.Context) {
	principal, ok := contractorPrincipal(c)
	if !ok {
		return
	}
	bidID, ok := pathID(c)
	if !ok {
		return
	}

	bid, err := h.bids.Withdraw(c.Request.Context(), bidID, principal.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBidResponse(bid))
}

type reviewRequest struct {
	Note string `json:"note"`
}

func (h *Handler) approveBid(c *gin.Context) {
	principal, ok := adminPrincipal(c)
	if !ok {
		return
	}
	bidID, ok := pathID(c)
	if !ok {
		return
	}

	// The body is optional: the note may be omitted on approval.
	var req reviewRequest
	_ = c.ShouldBindJSON(&req)

	bid, err := h.bids.Approve(c.Request.Context(), bidID, principal.UserID, req.Note)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBidResponse(bid))
}

type rejectRequest struct {
	Note string `json:"note" binding:"required"`
}

func (h *Handler) rejectBid(c *gin.Context) {
	principal, ok := adminPrincipal(c)
	if !ok {
		return
	}
	bidID, ok := pathID(c)
	if !ok {
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bid, err := h.bids.Reject(c.Request.Context(), bidID, principal.UserID, req.Note)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBidResponse(bid))
}

func (h *Handler) getBid(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	bidID, ok := pathID(c)
	if !ok {
		return
	}

	bid, err := h.bids.Get(c.Request.Context(), bidID, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBidResponse(bid))
}

func (h *Handler) listOwnBids(c *gin.Context) {
	principal, ok := contractorPrincipal(c)
	if !ok {
		return
	}

	bids, err := h.bids.ListForContractor(c.Request.Context(), principal.UserID, listQuery(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	result := make([]bidResponse, 0, len(bids))
	for i := range bids {
		result = append(result, toBidResponse(&bids[i]))
	}
	c.JSON(http.StatusOK, gin.H{"bids": result})
}

func (h *Handler) listProjectBids(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	if !principal.IsHomeowner() {
		c.JSON(http.StatusForbidden, gin.H{"code": service.ErrProjectAccessDenied.Code, "error": service.ErrProjectAccessDenied.Message})
		return
	}
	projectID, ok := pathID(c)
	if !ok {
		return
	}

	bids, err := h.bids.ListForHomeowner(c.Request.Context(), projectID, principal.UserID, listQuery(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

func (h *Handler) adminListProjectBids(c *gin.Context) {
	if _, ok := adminPrincipal(c); !ok {
		return
	}
	projectID, ok := pathID(c)
	if !ok {
		return
	}

	var status *model.BidStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed := model.BidStatus(strings.ToUpper(raw))
		if !model.ValidBidStatus(parsed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
		status = &parsed
	}

	details, err := h.bids.ListForAdmin(c.Request.Context(), projectID, status, listQuery(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	result := make([]bidDetailResponse, 0, len(details))
	for i := range details {
		result = append(result, toBidDetailResponse(details[i]))
	}
	c.JSON(http.StatusOK, gin.H{"bids": result})
}

func (h *Handler) adminExportProjectBids(c *gin.Context) {
	if _, ok := adminPrincipal(c); !ok {
		return
	}
	projectID, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.bids.ExportProjectBids(c.Request.Context(), projectID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	const contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentType, result.Content)
}

var errorStatus = map[string]int{
	"BID_NOT_FOUND":           http.StatusNotFound,
	"PROJECT_NOT_FOUND":       http.StatusNotFound,
	"CONTRACTOR_NOT_FOUND":    http.StatusNotFound,
	"BID_ACCESS_DENIED":       http.StatusForbidden,
	"PROJECT_ACCESS_DENIED":   http.StatusForbidden,
	"CONTRACTOR_NOT_VERIFIED": http.StatusForbidden,
	"BID_INVALID_STATUS":      http.StatusBadRequest,
	"BID_PROJECT_NOT_OPEN":    http.StatusBadRequest,
	"BID_DEADLINE_PASSED":     http.StatusBadRequest,
	"BID_MAX_REACHED":         http.StatusBadRequest,
	"BID_ALREADY_EXISTS":      http.StatusConflict,
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		status, known := errorStatus[svcErr.Code]
		if !known {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"code": svcErr.Code, "error": svcErr.Message})
		return
	}

	h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func contractorPrincipal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return model.Principal{}, false
	}
	if !principal.IsContractor() {
		c.JSON(http.StatusForbidden, gin.H{"code": service.ErrBidAccessDenied.Code, "error": service.ErrBidAccessDenied.Message})
		return model.Principal{}, false
	}
	return principal, true
}

func adminPrincipal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return model.Principal{}, false
	}
	if !principal.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"code": service.ErrBidAccessDenied.Code, "error": service.ErrBidAccessDenied.Message})
		return model.Principal{}, false
	}
	return principal, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func listQuery(c *gin.Context) model.ListQuery {
	q := model.ListQuery{
		Sort:  strings.TrimSpace(c.Query("sort")),
		Order: strings.ToLower(strings.TrimSpace(c.Query("order"))),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		q.Page = page
	}
	if size, err := strconv.Atoi(c.Query("pageSize")); err == nil {
		q.PageSize = size
	}
	return q
}

type bidResponse struct {
	ID                string               `json:"id"`
	Code              string               `json:"code"`
	ProjectID         string               `json:"projectId"`
	ContractorID      string               `json:"contractorId"`
	Price             float64              `json:"price"`
	Timeline          string               `json:"timeline"`
	Proposal          string               `json:"proposal"`
	Attachments       []attachmentPayload  `json:"attachments"`
	ResponseTimeHours *float64             `json:"responseTimeHours"`
	Status            string               `json:"status"`
	ReviewedBy        *string              `json:"reviewedBy,omitempty"`
	ReviewedAt        *time.Time           `json:"reviewedAt,omitempty"`
	ReviewNote        *string              `json:"reviewNote,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

type bidDetailResponse struct {
	bidResponse
	ContractorName  string  `json:"contractorName"`
	ContractorEmail string  `json:"contractorEmail"`
	ContractorPhone string  `json:"contractorPhone"`
	Rating          float64 `json:"rating"`
	TotalProjects   int     `json:"totalProjects"`
}

func toBidResponse(bid *model.Bid) bidResponse {
	resp := bidResponse{
		ID:                bid.ID.String(),
		Code:              bid.Code,
		ProjectID:         bid.ProjectID.String(),
		ContractorID:      bid.ContractorID.String(),
		Price:             bid.Price,
		Timeline:          bid.Timeline,
		Proposal:          bid.Proposal,
		Attachments:       fromAttachments(bid.Attachments),
		ResponseTimeHours: bid.ResponseTimeHours,
		Status:            string(bid.Status),
		ReviewedAt:        bid.ReviewedAt,
		ReviewNote:        bid.ReviewNote,
		CreatedAt:         bid.CreatedAt,
		UpdatedAt:         bid.UpdatedAt,
	}
	if bid.ReviewedBy != nil {
		reviewedBy := bid.ReviewedBy.String()
		resp.ReviewedBy = &reviewedBy
	}
	return resp
}

func toBidDetailResponse(detail model.BidDetail) bidDetailResponse {
	return bidDetailResponse{
		bidResponse:     toBidResponse(&detail.Bid),
		ContractorName:  detail.Contractor.Name,
		ContractorEmail: detail.Contractor.Email,
		ContractorPhone: detail.Contractor.Phone,
		Rating:          detail.Contractor.Rating,
		TotalProjects:   detail.Contractor.TotalProjects,
	}
}

func toAttachments(payloads []attachmentPayload) model.AttachmentList {
	attachments := make(model.AttachmentList, 0, len(payloads))
	for _, p := range payloads {
		attachments = append(attachments, model.Attachment{
			Name: p.Name,
			URL:  p.URL,
			Type: p.Type,
			Size: p.Size,
		})
	}
	return attachments
}

func fromAttachments(attachments model.AttachmentList) []attachmentPayload {
	payloads := make([]attachmentPayload, 0, len(attachments))
	for _, a := range attachments {
		payloads = append(payloads, attachmentPayload{
			Name: a.Name,
			URL:  a.URL,
			Type: a.Type,
			Size: a.Size,
		})
	}
	return payloads
}
