package skeleton

// Key names a tracked segment. A == B marks a joint, otherwise a bone.
type Key struct {
	A JointID
	B JointID
}

// JointKey keys a single joint.
func JointKey(j JointID) Key { return Key{A: j, B: j} }

// BoneKey keys the bone between two joints.
func BoneKey(a, b JointID) Key { return Key{A: a, B: b} }

// IsJoint reports whether k keys a joint.
func (k Key) IsJoint() bool { return k.A == k.B }

func (k Key) String() string {
	if k.IsJoint() {
		return k.A.String()
	}
	return k.A.String() + "-" + k.B.String()
}

// TrackedJoints are drawn as circles. Order matters for hit testing: the
// left hand region is taken while walking this list.
var TrackedJoints = []JointID{Head, HandLeft, HandRight, FootLeft, FootRight}

// TrackedBones are drawn as round-capped lines.
var TrackedBones = []Key{
	// arms
	BoneKey(HandRight, WristRight),
	BoneKey(WristRight, ElbowRight),
	BoneKey(ElbowRight, ShoulderRight),
	BoneKey(HandLeft, WristLeft),
	BoneKey(WristLeft, ElbowLeft),
	BoneKey(ElbowLeft, ShoulderLeft),

	// head and shoulders
	BoneKey(ShoulderCenter, Head),
	BoneKey(ShoulderLeft, ShoulderCenter),
	BoneKey(ShoulderCenter, ShoulderRight),

	// legs
	BoneKey(HipLeft, KneeLeft),
	BoneKey(KneeLeft, AnkleLeft),
	BoneKey(AnkleLeft, FootLeft),
	BoneKey(HipRight, KneeRight),
	BoneKey(KneeRight, AnkleRight),
	BoneKey(AnkleRight, FootRight),
	BoneKey(HipLeft, HipCenter),
	BoneKey(HipCenter, HipRight),

	// spine
	BoneKey(HipCenter, ShoulderCenter),
}
