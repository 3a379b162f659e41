/*
CHANDEMUX recovers multiplexed channel data from a stream of raw signed
16-bit samples.

The receiver reads fixed-size chunks from a sample file, stdin or an rtl_tcp
server. Every chunk is decimated, binarized against a windowed mean
threshold, searched for the preamble and, once locked, split into frames of
8 channels by 2 lanes. Lane bytes are appended to one file per lane and
optionally logged frame by frame. Decoding state carries across chunks, so
with the default threshold policy the output never depends on the chunk
size.

Usage:

	chandemux [options]

Command-line Flags:

	--config=""

YAML config file. Keys it doesn't set keep their defaults. Environment
variables and command-line flags override it, in that order.

	--source="file"
	--samplefile="-"

Sample source. The file source reads little-endian int16 samples, - reads
stdin. The rtltcp source connects to --server, tunes to --centerfreq and
--samplerate and converts IQ pairs to magnitude samples.

	--decimation=10
	--thresholdwindow=16
	--thresholdpolicy="window"
	--decision="first"

One bit is decided per decimation step from its first sample, or from the
mean of all its samples with the mean decision. The threshold
is the mean of every sample in a window of thresholdwindow steps. With the
window policy bits are held back until their whole window has arrived and
only the session's final window is anchored to the end of the stream. The
chunk policy anchors a window overrunning a chunk to the end of that chunk.

	--marker="10101100"
	--validation="11110000"

The preamble is the marker immediately followed by the validation field. A
marker with the wrong validation field is counted as a near miss and the
search continues with the next bit.

	--framebits=128
	--channels=8
	--lanes=2

Frame layout. Within each channel's segment the lanes take turns bit by bit,
lane bits are packed most significant bit first.

	--chunksize=8388608
	--queuedepth=2

Samples per chunk and chunks buffered between the source and the decoder.

	--rawfile=""
	--progress=10s

Every acquired sample is also written to rawfile in the sample file layout,
so a session can be decoded again later. Progress reports the data moved so
far, the queue fill and the average and latest throughput.

	--duration=0

Time to run for, 0 for infinite. Interrupting or reaching the limit ends the
session cleanly.

	--outdir="."
	--dirpattern="%Y%m%d_%H%M%S"

Lane files ch1_lane1.bin through ch8_lane2.bin are written to a directory
named by expanding dirpattern at startup. An empty outdir disables them.

	--framelog=""
	--format="plain"

Frame log destination, - for stdout, and its format: plain, csv, json or xml.
Plain records look like:

	{Time:2024-03-01T12:30:45.000 Frame:7 Lanes:[FF 00 FF 00 ...]}

	--digest=true

Log a CRC-16 and byte count for every lane when the session ends. Runs over
the same signal produce the same digests however it was chunked.

	--loglevel="info"
	--logformat="text"

Every flag may also be given as an environment variable named CHANDEMUX_
followed by the upper-case flag name, e.g. CHANDEMUX_DECIMATION=10.
*/
package main
