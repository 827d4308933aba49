/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vocab

// Context defines the object context.
type Context string

const (
	// ContextActivityStreams is the ActivityStreams context.
	ContextActivityStreams Context = "https://www.w3.org/ns/activitystreams"
	// ContextSecurity is the security context.
	ContextSecurity Context = "https://w3id.org/security/v1"
)

const (
	// PublicIRI indicates that the object is public, i.e. it may be viewed by anyone.
	PublicIRI = "https://www.w3.org/ns/activitystreams#Public"
)

// Type indicates the type of the object.
type Type string

const (
	// TypeArticle specifies the 'Article' object type.
	TypeArticle Type = "Article"
	// TypeNote specifies the 'Note' object type.
	TypeNote Type = "Note"
	// TypePage specifies the 'Page' object type.
	TypePage Type = "Page"
	// TypeVideo specifies the 'Video' object type.
	TypeVideo Type = "Video"
	// TypeImage specifies the 'Image' object type.
	TypeImage Type = "Image"
	// TypeAudio specifies the 'Audio' object type.
	TypeAudio Type = "Audio"
	// TypeDocument specifies the 'Document' object type.
	TypeDocument Type = "Document"
	// TypeEvent specifies the 'Event' object type.
	TypeEvent Type = "Event"
	// TypePlace specifies the 'Place' object type.
	TypePlace Type = "Place"
	// TypeObject specifies the generic 'Object' type.
	TypeObject Type = "Object"
	// TypeTombstone specifies the 'Tombstone' object type.
	TypeTombstone Type = "Tombstone"

	// TypeCollection specifies the 'Collection' object type.
	TypeCollection Type = "Collection"
	// TypeOrderedCollection specifies the 'OrderedCollection' object type.
	TypeOrderedCollection Type = "OrderedCollection"
	// TypeCollectionPage specifies the 'CollectionPage' object type.
	TypeCollectionPage Type = "CollectionPage"
	// TypeOrderedCollectionPage specifies the 'OrderedCollectionPage' object type.
	TypeOrderedCollectionPage Type = "OrderedCollectionPage"

	// TypePerson specifies the 'Person' actor type.
	TypePerson Type = "Person"
	// TypeGroup specifies the 'Group' actor type.
	TypeGroup Type = "Group"
	// TypeService specifies the 'Service' actor type.
	TypeService Type = "Service"
	// TypeApplication specifies the 'Application' actor type.
	TypeApplication Type = "Application"

	// TypeLink specifies the 'Link' object type.
	TypeLink Type = "Link"
	// TypeMention specifies the 'Mention' tag type.
	TypeMention Type = "Mention"
	// TypeHashtag specifies the 'Hashtag' tag type.
	TypeHashtag Type = "Hashtag"
	// TypePropertyValue specifies the 'PropertyValue' attachment type.
	TypePropertyValue Type = "PropertyValue"

	// TypeCreate specifies the 'Create' activity type.
	TypeCreate Type = "Create"
	// TypeUpdate specifies the 'Update' activity type.
	TypeUpdate Type = "Update"
	// TypeDelete specifies the 'Delete' activity type.
	TypeDelete Type = "Delete"
	// TypeFollow specifies the 'Follow' activity type.
	TypeFollow Type = "Follow"
	// TypeAccept specifies the 'Accept' activity type.
	TypeAccept Type = "Accept"
	// TypeReject specifies the 'Reject' activity type.
	TypeReject Type = "Reject"
	// TypeLike specifies the 'Like' activity type.
	TypeLike Type = "Like"
	// TypeAnnounce specifies the 'Announce' activity type.
	TypeAnnounce Type = "Announce"
	// TypeUndo specifies the 'Undo' activity type.
	TypeUndo Type = "Undo"
)

const (
	propertyContext      = "@context"
	propertyID           = "id"
	propertyType         = "type"
	propertyTo           = "to"
	propertyCC           = "cc"
	propertyPublished    = "published"
	propertyUpdated      = "updated"
	propertyActor        = "actor"
	propertyCurrent      = "current"
	propertyFirst        = "first"
	propertyLast         = "last"
	propertyNext         = "next"
	propertyPrev         = "prev"
	propertyPartOf       = "partOf"
	propertyItems        = "items"
	propertyOrderedItems = "orderedItems"
	propertyObject       = "object"
	propertyTarget       = "target"
	propertyResult       = "result"
	propertyTotalItems   = "totalItems"
	propertyAttributedTo = "attributedTo"
	propertyInReplyTo    = "inReplyTo"
	propertyName         = "name"
	propertySummary      = "summary"
	propertyContent      = "content"
	propertyMediaType    = "mediaType"
	propertyURL          = "url"
	propertyTag          = "tag"
	propertyAttachment   = "attachment"
	propertyFormerType   = "formerType"
	propertyDeleted      = "deleted"

	propertyPreferredUsername = "preferredUsername"
	propertyInbox             = "inbox"
	propertyOutbox            = "outbox"
	propertyFollowers         = "followers"
	propertyFollowing         = "following"
	propertyLiked             = "liked"
	propertyFeatured          = "featured"
	propertyPublicKey         = "publicKey"
	propertyIcon              = "icon"
	propertyImage             = "image"
	propertyEndpoints         = "endpoints"
)

func reservedProperties() []string {
	return []string{
		propertyContext,
		propertyID,
		propertyType,
		propertyTo,
		propertyCC,
		propertyPublished,
		propertyUpdated,
		propertyActor,
		propertyCurrent,
		propertyFirst,
		propertyLast,
		propertyNext,
		propertyPrev,
		propertyPartOf,
		propertyItems,
		propertyOrderedItems,
		propertyObject,
		propertyTarget,
		propertyResult,
		propertyTotalItems,
		propertyAttributedTo,
		propertyInReplyTo,
		propertyName,
		propertySummary,
		propertyContent,
		propertyMediaType,
		propertyURL,
		propertyTag,
		propertyAttachment,
		propertyFormerType,
		propertyDeleted,
		propertyPreferredUsername,
		propertyInbox,
		propertyOutbox,
		propertyFollowers,
		propertyFollowing,
		propertyLiked,
		propertyFeatured,
		propertyPublicKey,
		propertyIcon,
		propertyImage,
		propertyEndpoints,
	}
}

// Document defines a JSON document as a map.
type Document map[string]interface{}

// MergeWith merges the document with the given document. Any duplicate fields
// in the given document are ignored.
func (doc Document) MergeWith(other Document) {
	for k, v := range other {
		if _, ok := doc[k]; !ok {
			doc[k] = v
		}
	}
}
