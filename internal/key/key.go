// Package key provides deterministic document id generation.
package key

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// LikeID computes the like document id for a (post, actor) pair.
// The id is deterministic so a duplicate like collides on the conditional
// create instead of depending on a racy existence check, and so an unlike
// can address the document without querying for it.
func LikeID(postID, authorHandle string) string {
	data := fmt.Sprintf("like#%s#%s", postID, authorHandle)
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:16])
}
