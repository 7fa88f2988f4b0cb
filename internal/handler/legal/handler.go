package legal

import (
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	legalModel "github.com/zhouzirui/legalease/backend/internal/model/legal"
	"github.com/zhouzirui/legalease/backend/internal/render"
	"github.com/zhouzirui/legalease/backend/internal/service/ai"
	"github.com/zhouzirui/legalease/backend/pkg/utils"
)

const echoPreviewRunes = 100

// Handler 法律资料与辅助工具的HTTP处理器
type Handler struct {
	catalog   legalModel.Store
	aiSvc     *ai.Service
	formatter render.Formatter
}

// New 创建法律资料处理器。aiSvc 为空时引用格式化与分类接口返回 503。
func New(catalog legalModel.Store, aiSvc *ai.Service, formatter render.Formatter) *Handler {
	if formatter == nil {
		formatter = render.NewFormatter()
	}
	return &Handler{
		catalog:   catalog,
		aiSvc:     aiSvc,
		formatter: formatter,
	}
}

// RegisterRoutes 注册资料查询与渲染路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/templates", h.handleListTemplates)
	r.Get("/templates/{id}", h.handleGetTemplate)
	r.Get("/glossary", h.handleListGlossary)
	r.Get("/glossary/{id}", h.handleGetTerm)
	r.Get("/categories", h.handleListCategories)
	r.Post("/render", h.handleRender)
}

// RegisterModelRoutes 注册需要调用模型的路由
func (h *Handler) RegisterModelRoutes(r chi.Router) {
	r.Post("/cite", h.handleCite)
	r.Post("/analyze-category", h.handleAnalyzeCategory)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{"templates": h.catalog.Templates()})
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	template, ok := h.catalog.Template(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "Template not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"id": id, "template": template})
}

func (h *Handler) handleListGlossary(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{"glossary": h.catalog.Glossary()})
}

func (h *Handler) handleGetTerm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	term, ok := h.catalog.Term(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "Term not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"id": id, "term_data": term})
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{"categories": h.catalog.Categories()})
}

// handleRender 渲染任意文本，不调用模型
func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.formatter.Format(payload.Text)
	if result.Risks == nil {
		result.Risks = []legalModel.RiskLevel{}
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCite(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Citation string `json:"citation"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	citation := strings.TrimSpace(payload.Citation)
	if citation == "" {
		utils.RespondError(w, http.StatusBadRequest, "Citation text required")
		return
	}
	if h.aiSvc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "AI service is not configured")
		return
	}

	formatted, err := h.aiSvc.FormatCitation(r.Context(), citation)
	if err != nil {
		log.Printf("[legal] citation failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"original": citation, "formatted": formatted})
}

func (h *Handler) handleAnalyzeCategory(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		utils.RespondError(w, http.StatusBadRequest, "Text required")
		return
	}
	if h.aiSvc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "AI service is not configured")
		return
	}

	analysis, err := h.aiSvc.AnalyzeCategory(r.Context(), text)
	if err != nil {
		log.Printf("[legal] category analysis failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"text":              preview(text, echoPreviewRunes),
		"category_analysis": analysis,
	})
}

func preview(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
