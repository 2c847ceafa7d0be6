/*
argus is a video analysis engine for security footage.  It decodes video,
runs per-frame object detection, and in its tracking mode maintains
persistent object identities across frames to build movement trajectories
for downstream threat-behaviour analysis.

The root package holds the configuration surface and the class mapping
shared by the detection and tracking pipelines.  See the video, detect,
bytetrack, track, pipeline and store subpackages for the processing
components, and cmd/argus for the command line front end.
*/
package argus
