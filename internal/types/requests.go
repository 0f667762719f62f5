package types

// RegisterRequest is the body of POST /api/v1/auth/register.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateRecipeForm is the multipart form for a user upload. The image and
// video_file parts are read separately.
type CreateRecipeForm struct {
	Title        string `form:"title" binding:"required,max=255"`
	Description  string `form:"description"`
	Ingredients  string `form:"ingredients" binding:"required"`
	Instructions string `form:"instructions" binding:"required"`
	Category     string `form:"category" binding:"required"`
	Difficulty   string `form:"difficulty"`
	PrepTime     string `form:"prep_time"`
	CookTime     string `form:"cook_time"`
	Servings     string `form:"servings"`
	Tags         string `form:"tags"`
	VideoURL     string `form:"video_url"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=published draft archived"`
}

type UpdateFeaturedRequest struct {
	Featured *bool `json:"featured" binding:"required"`
}

// AuthResponse is returned by the login and register endpoints.
type AuthResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}
