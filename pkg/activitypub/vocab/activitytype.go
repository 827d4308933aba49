/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vocab

import (
	"fmt"
	"net/url"
)

// ActivityType defines an 'activity'.
type ActivityType struct {
	*ObjectType

	activity *activityType
}

type activityType struct {
	Actor  *URLProperty    `json:"actor,omitempty"`
	Target *ObjectProperty `json:"target,omitempty"`
	Object *ObjectProperty `json:"object,omitempty"`
	Result *ObjectProperty `json:"result,omitempty"`
}

// Actor returns the actor for the activity.
func (t *ActivityType) Actor() *url.URL {
	if t.activity.Actor == nil {
		return nil
	}

	return t.activity.Actor.URL()
}

// SetActor sets the actor for the activity.
func (t *ActivityType) SetActor(iri *url.URL) {
	t.activity.Actor = NewURLProperty(iri)
}

// Target returns the target of the activity.
func (t *ActivityType) Target() *ObjectProperty {
	return t.activity.Target
}

// Object returns the object of the activity.
func (t *ActivityType) Object() *ObjectProperty {
	return t.activity.Object
}

// Result returns the result.
func (t *ActivityType) Result() *ObjectProperty {
	return t.activity.Result
}

// MarshalJSON marshals the activity.
func (t *ActivityType) MarshalJSON() ([]byte, error) {
	return MarshalJSON(t.ObjectType, t.activity)
}

// UnmarshalJSON unmarshals the activity.
func (t *ActivityType) UnmarshalJSON(bytes []byte) error {
	t.ObjectType = NewObject()
	t.activity = &activityType{}

	return UnmarshalJSON(bytes, t.ObjectType, t.activity)
}

// Validate validates the activity envelope. All activities require a type, an
// actor, at least one recipient and (for the types that act on one) an object.
func (t *ActivityType) Validate() error {
	if t == nil {
		return fmt.Errorf("nil activity")
	}

	if t.ID() == nil || t.ID().URL() == nil {
		return fmt.Errorf("no ID specified on activity")
	}

	typeProp := t.Type()
	if typeProp == nil || len(typeProp.Types()) == 0 {
		return fmt.Errorf("no type specified on activity")
	}

	if t.Actor() == nil {
		return fmt.Errorf("no actor specified on '%s' activity", typeProp)
	}

	// An object is mandatory for the types that act on one. Other types are
	// let through so that unrecognized activities can be ignored downstream.
	if typeProp.IsAny(TypeCreate, TypeUpdate, TypeDelete, TypeFollow,
		TypeAccept, TypeReject, TypeLike, TypeAnnounce, TypeUndo) {
		obj := t.Object()
		if obj == nil || (obj.IRI() == nil && obj.Object() == nil && obj.Activity() == nil) {
			return fmt.Errorf("no object specified on '%s' activity", typeProp)
		}
	}

	if len(t.To()) == 0 && len(t.CC()) == 0 {
		return fmt.Errorf("no recipients specified on '%s' activity", typeProp)
	}

	return nil
}

func newActivity(typ Type, obj *ObjectProperty, opts ...Opt) *ActivityType {
	options := NewOptions(opts...)

	return &ActivityType{
		ObjectType: NewObject(
			WithContext(getContexts(options, ContextActivityStreams)...),
			WithID(options.ID),
			WithType(typ),
			WithTo(options.To...),
			WithCC(options.CC...),
			WithPublishedTime(options.Published),
		),
		activity: &activityType{
			Actor:  NewURLProperty(options.Actor),
			Target: options.Target,
			Object: obj,
			Result: options.Result,
		},
	}
}

// NewCreateActivity returns a new 'Create' activity.
func NewCreateActivity(obj *ObjectProperty, opts ...Opt) *ActivityType {
	return newActivity(TypeCreate, obj, opts...)
}

// NewUpdateActivity returns a new 'Update' activity.
func NewUpdateActivity(obj *ObjectProperty, opts ...Opt) *ActivityType {
	return newActivity(TypeUpdate, obj, opts...)
}

// NewDeleteActivity returns a new 'Delete' activity.
func NewDeleteActivity(obj *ObjectProperty, opts ...Opt) *ActivityType {
	return newActivity(TypeDelete, obj, opts...)
}

// NewFollowActivity returns a new 'Follow' activity.
func NewFollowActivity(obj *ObjectProperty, opts ...Opt) *ActivityType {
	return newActivity(TypeFollow, obj, opts...)
}

// NewAcceptActivity returns a new 'Accept' activity.
func NewAcceptActivity(obj *ObjectProperty, opts ...Opt) *ActivityType {
	return newActivity(TypeAccept, obj, opts...)
}

// NewRejectActivity returns a new 'Reject' activity.
func NewRejectActivity(obj *ObjectProperty, opts ...Opt) *ActivityType {
	return newActivity(TypeReject, obj, opts...)
}

// NewLikeActivity returns a new 'Like' activity.
func NewLikeActivity(obj *ObjectProperty, opts ...Opt) *ActivityType {
	return newActivity(TypeLike, obj, opts...)
}

// NewAnnounceActivity returns a new 'Announce' activity.
func NewAnnounceActivity(obj *ObjectProperty, opts ...Opt) *ActivityType {
	return newActivity(TypeAnnounce, obj, opts...)
}

// NewUndoActivity returns a new 'Undo' activity.
func NewUndoActivity(obj *ObjectProperty, opts ...Opt) *ActivityType {
	return newActivity(TypeUndo, obj, opts...)
}

func getContexts(options *Options, contexts ...Context) []Context {
	return append(contexts, options.Context...)
}
