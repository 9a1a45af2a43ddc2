// AngelaMos | 2026
// dto.go

package taxonomy

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type RenameCategoryRequest struct {
	NewName string `json:"newName" validate:"required,min=1,max=100"`
}

type CategoryListResponse struct {
	Categories []string `json:"categories"`
}

type TagListResponse struct {
	Tags []string `json:"tags"`
}
