package notes

import "github.com/S4nzh4r/ya-note/internal/models"

// CanModify reports whether user may edit or delete note.
func CanModify(user *models.User, note *models.Note) bool {
	return user != nil && note != nil && user.ID == note.AuthorID
}

// CanView reports whether user may see note. Notes are private to their
// author.
func CanView(user *models.User, note *models.Note) bool {
	return CanModify(user, note)
}
