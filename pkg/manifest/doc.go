/*
Package manifest loads the declared state of a node from multi-document
YAML.

	apiVersion: gluster/v1
	kind: Peer
	metadata:
	  name: gfs2.example.com
	spec:
	  ensure: present                 # or absent
	  localPeerAliases: gfs1.internal # a string or a list
	---
	kind: Volume
	metadata:
	  name: vol1
	spec:
	  ensure: started                 # present, started, stopped or absent
	  replica: 2
	  bricks:
	    - gfs1.example.com:/data/brick1/vol1
	    - gfs2.example.com:/data/brick1/vol1
	---
	kind: Service
	metadata:
	  name: glusterfs-server

Service documents are not reconciled. They only exist so that peers can be
ordered after the local storage service when it is declared.
*/
package manifest
