package handlers

import (
	"holophrame-api/internal/models"

	"gorm.io/gorm"
)

// authorsByID loads the public author fields for a set of user IDs.
func authorsByID(db *gorm.DB, ids []string) (map[string]models.Author, error) {
	out := make(map[string]models.Author, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = models.Author{ID: u.ID, Username: u.Username, Bio: u.Bio}
	}
	return out, nil
}

// attachAuthors fills the denormalized Author field on a page of posts.
func attachAuthors(db *gorm.DB, posts []models.Post) error {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
	}
	authors, err := authorsByID(db, ids)
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].Author = authors[posts[i].AuthorID]
	}
	return nil
}

// excludedAuthorIDs returns the users this user has blocked or muted; their
// posts are filtered out of the feed.
func excludedAuthorIDs(db *gorm.DB, userID string) ([]string, error) {
	var relations []models.UserRelation
	if err := db.Where("user_id = ?", userID).Find(&relations).Error; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(relations))
	for _, r := range relations {
		ids = append(ids, r.TargetID)
	}
	return ids, nil
}

// hasRelation reports whether userID has the given relation to targetID.
func hasRelation(db *gorm.DB, userID, targetID string, kind models.RelationKind) (bool, error) {
	var count int64
	err := db.Model(&models.UserRelation{}).
		Where("user_id = ? AND target_id = ? AND kind = ?", userID, targetID, kind).
		Count(&count).Error
	return count > 0, err
}
