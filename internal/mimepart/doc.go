// Package mimepart extracts the plain-text body and attachment filenames from
// a Gmail message payload.
//
// The payload is converted once into a closed tree of Leaf and Container
// values (see FromGmail). The extraction functions walk that tree depth-first,
// pre-order, and never mutate it, so they are safe to call concurrently on the
// same tree.
//
// Example usage:
//
//	root := mimepart.FromGmail(msg.Payload)
//
//	body, err := mimepart.PlainTextBody(root)
//	if err != nil {
//	    var decodeErr *mimepart.DecodeError
//	    if errors.As(err, &decodeErr) {
//	        // skip this message
//	    }
//	}
//
//	attachments := mimepart.AttachmentFilenames(root)
package mimepart
