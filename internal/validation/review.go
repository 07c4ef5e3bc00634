package validation

type CreateReviewRequest struct {
	TreeID  string  `json:"treeId"`
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

const msgRating = "Rating must be an integer between 1 and 5"

func (r *CreateReviewRequest) Validate() error {
	var errs fieldErrors

	if r.TreeID == "" || r.Rating == nil {
		errs.add("treeId", "Tree ID and rating are required")
	}
	if r.TreeID != "" && !IsUUID(r.TreeID) {
		errs.add("treeId", "Tree ID must be a valid UUID")
	}
	if r.Rating != nil && (*r.Rating < 1 || *r.Rating > 5) {
		errs.add("rating", msgRating)
	}
	if r.Comment != nil && runeLen(*r.Comment) > 1000 {
		errs.add("comment", "Comment cannot exceed 1000 characters")
	}

	return errs.err()
}

// Validate requires at least one of rating and comment.
func (r *UpdateReviewRequest) Validate() error {
	var errs fieldErrors

	if r.Rating == nil && r.Comment == nil {
		errs.add("body", "At least one field (rating or comment) must be provided")
	}
	if r.Rating != nil && (*r.Rating < 1 || *r.Rating > 5) {
		errs.add("rating", msgRating)
	}
	if r.Comment != nil && runeLen(*r.Comment) > 1000 {
		errs.add("comment", "Comment cannot exceed 1000 characters")
	}

	return errs.err()
}
